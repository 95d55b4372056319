// Package schedule turns raw solver output into the ordered sequence of
// operation intervals the rest of the pipeline consumes.
//
// Raw input is line oriented, one variable per line:
//
//	Sijk[j_1,op_1,R] 5.0
//	Cijk[j_1,op_1,R] 12.0
//	Xijk[j_1,op_1,R] 1.0
//
// Bracket indices are job, operation, resource. Lines naming any other
// variable are skipped. The loader keeps an interval when its active flag
// is set and its start differs from its end, lets a collaborative variant
// supersede the other resources of the same (job, operation) pair, and
// sorts the result by start time, ties kept in first-encounter order.
//
// The readable file written by WriteReadable is the hand-off format to
// the domain encoder:
//
//	Operation op_1, Job j_1, Resource R: Start time (Sijk) = 5, End time (Cijk) = 12
package schedule
