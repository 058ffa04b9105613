// Package core provides the business logic for document imports.
//
// An import reads one document, works out which table it describes, decides
// whether an existing table of that name may be replaced, and writes one
// record per entry of the document's data array. It is used by the command
// line and by the HTTP server without modification.
//
// # Document layout
//
// The document root carries the table description next to the rows:
//
//	{
//	  "table": "T1",          // table name, unless given as a parameter
//	  "dsn": "PROD.TABLES",   // library, unless given as a parameter
//	  "keys": ["ID"],         // key fields, may be empty
//	  "names": ["VAL"],       // value fields, at least one
//	  "data": [{"ID": "1", "VAL": "x"}],
//	  "num_rows": 1           // optional, only used for the report
//	}
//
// # Run sequence
//
//  1. [document.Parse] builds the tree and detects the declared encoding.
//  2. [ExtractMetadata] resolves identity and field lists into a [RunContext].
//  3. The [Binder] binds the store library.
//  4. [Reconcile] inspects an existing table when REPL was requested.
//  5. The table is created, [ImportRows] appends every row, and the table
//     is closed, which saves it.
//
// Any failure stops the run with an [*Error]; the table is ended without
// saving and the library released. [MapError] turns errors into operator
// messages with a support code.
//
// # Encodings
//
// Strings taken from the document pass through a [codepage.Pipeline]: field
// names are held in the working encoding (IBM-1047), table names and values
// in the store encoding, which is IBM-1047 unless the caller asked for
// another code page.
package core
