package database

import _ "embed"

// Schema is the DDL for the account and transaction tables.
//
//go:embed schema.sql
var Schema string
