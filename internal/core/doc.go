// Package core provides the operations of the table loader independent of
// any transport.
//
// A [Service] binds a destination catalog to scan, source and load options.
// It is used by the web handlers and the command line alike.
//
// # Operations
//
//   - [Service.Infer] samples a file and returns its inferred columns.
//   - [Service.Compare] infers a file, compares it with a destination table
//     and checks every row against the table's primary key and unique
//     constraints. Nothing is written.
//   - [Service.Load] infers a file and writes it into a table. The table is
//     created, appended to or replaced according to [load.Options].
//   - [Service.LoadMany] runs several loads, bounded by the [LoadLimiter].
//
// Finished loads are kept in a bounded [History] so that recent reports can
// be listed.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SCH001-SCH004: the table cannot take the file
//   - CONV001-CONV003: a value or key of the file is rejected
//   - SRC001-SRC004: the file cannot be read
//   - DB001-DB008: database errors (duplicates, constraints, connections)
//   - LOAD001-LOAD004: load lifecycle (busy, cancelled, timed out)
//
// # Concurrency
//
// [LoadLimiter] bounds the number of loads running at once. A load that
// cannot start within the limiter's wait time fails with [ErrTooManyLoads].
package core
