// Package ir provides the intermediate representation for LOS models.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Expr is a closed sum type; every consumer switches exhaustively over it
//   - A Model is never mutated after it leaves the stage that produced it;
//     binding and validation return new Models
//   - Set members and index tuples are compared through Value.Key, so an
//     integral float cell and an int member address the same tuple
package ir
