package main

import (
	"context"
	"strings"

	"github.com/JonMunkholm/tblimport/internal/codepage"
	"github.com/JonMunkholm/tblimport/internal/config"
	"github.com/JonMunkholm/tblimport/internal/core"
	"github.com/JonMunkholm/tblimport/internal/store"
	"github.com/JonMunkholm/tblimport/internal/store/memstore"
	"github.com/JonMunkholm/tblimport/internal/store/sqlstore"
)

func storeOptions(c config.StoreConfig) sqlstore.Options {
	return sqlstore.Options{
		Driver:      c.Driver,
		DSN:         c.URL,
		BusyTimeout: c.BusyTimeout,
		WAL:         c.WAL,
	}
}

func isMemory(c config.StoreConfig) bool {
	return strings.EqualFold(c.Driver, "memory")
}

// oneShotBinder opens the database for each binding; releasing the library
// closes it again. Used by the batch commands.
func oneShotBinder(c config.StoreConfig) core.Binder {
	if isMemory(c) {
		return memBinder(memstore.New())
	}
	return func(ctx context.Context, library string, tables codepage.Codec) (store.Library, error) {
		enc := sqlstore.Encodings{Tables: tables, Fields: codepage.Default}
		return sqlstore.OpenLibrary(ctx, storeOptions(c), library, enc)
	}
}

// sharedBinder binds libraries on one long-lived database handle. The
// returned close function releases it.
func sharedBinder(ctx context.Context, c config.StoreConfig) (core.Binder, func() error, error) {
	if isMemory(c) {
		return memBinder(memstore.New()), func() error { return nil }, nil
	}
	db, err := sqlstore.Open(ctx, storeOptions(c))
	if err != nil {
		return nil, nil, err
	}
	bind := func(_ context.Context, library string, tables codepage.Codec) (store.Library, error) {
		return db.Library(library, sqlstore.Encodings{Tables: tables, Fields: codepage.Default}), nil
	}
	return bind, db.Close, nil
}

func memBinder(s *memstore.Store) core.Binder {
	return func(_ context.Context, library string, _ codepage.Codec) (store.Library, error) {
		return s.Library(library), nil
	}
}
