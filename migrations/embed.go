package migrations

import "embed"

// Files holds the embedded SQL schema migrations, applied in name order.
//
//go:embed *.sql
var Files embed.FS
