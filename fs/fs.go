package appfs

import "embed"

// FS holds the database migrations, every template the binaries render and the password policy assets.
// Templates use "all:" so the "_base" email layouts are kept.
//
//go:embed migrations all:templates common-passwords.txt
var FS embed.FS
