package wal

import (
	"github.com/coleman-db/coleman/internal/schema"
	"github.com/coleman-db/coleman/internal/value"
)

// entry tag bytes, binding across the WAL format.
const (
	tagCreateTable uint8 = 0x01
	tagAddRecord   uint8 = 0x02
)

// EntryKind discriminates the WALEntry union.
type EntryKind int

const (
	CreateTableEntry EntryKind = iota
	AddRecordEntry
)

// Entry is a tagged variant of the two logical mutations the WAL records:
// table creation and row append. It carries no timestamp — ordering is by
// the log's sequence number alone.
type Entry struct {
	Kind EntryKind

	// CreateTableEntry fields.
	TableName string
	Schema    schema.Schema

	// AddRecordEntry fields (TableName shared above).
	Values []value.Value
}

// NewCreateTable builds a CreateTable entry.
func NewCreateTable(table string, s schema.Schema) Entry {
	return Entry{Kind: CreateTableEntry, TableName: table, Schema: s}
}

// NewAddRecord builds an AddRecord entry.
func NewAddRecord(table string, values []value.Value) Entry {
	return Entry{Kind: AddRecordEntry, TableName: table, Values: values}
}
