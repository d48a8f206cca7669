// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cow

// OpIterator lazily walks a verified, in-memory operation table as
// fixed-width records. It owns its buffer (obtained via
// [Reader.OpIter]) and may outlive the [Reader] that produced it,
// since iteration never touches the byte source again. It is
// single-pass and non-restartable.
type OpIterator struct {
	buf    []byte
	cursor int
	done   bool
}

// newOpIterator constructs an iterator over an already-verified
// operation table. buf's length must be an exact multiple of
// operationSize — [Reader.Parse] enforces this via invariant 3
// before [Reader.OpIter] ever calls here, so a partial trailing
// record cannot occur.
func newOpIterator(buf []byte) *OpIterator {
	return &OpIterator{
		buf:  buf,
		done: len(buf) < operationSize,
	}
}

// Done reports whether iteration is complete. Get and Next must not
// be called once Done returns true.
func (it *OpIterator) Done() bool {
	return it.done
}

// Get returns the operation record at the current cursor position. It
// is a precondition violation (and panics) to call Get after Done
// returns true.
func (it *OpIterator) Get() Operation {
	if it.done {
		panic("cow: OpIterator.Get called after Done")
	}
	return decodeOperation(it.buf[it.cursor : it.cursor+operationSize])
}

// Next advances the cursor to the next record. It is a precondition
// violation (and panics) to call Next after Done returns true.
func (it *OpIterator) Next() {
	if it.done {
		panic("cow: OpIterator.Next called after Done")
	}
	it.cursor += operationSize
	if len(it.buf)-it.cursor < operationSize {
		it.done = true
	}
}

// Count returns the total number of records in the table, computable
// up front since the table length is fixed at construction.
func (it *OpIterator) Count() int {
	return len(it.buf) / operationSize
}

// All drains the iterator into a slice, in on-disk order. The
// iterator is exhausted (Done returns true) after this call.
func (it *OpIterator) All() []Operation {
	ops := make([]Operation, 0, it.Count())
	for !it.Done() {
		ops = append(ops, it.Get())
		it.Next()
	}
	return ops
}
