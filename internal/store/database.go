package store

import (
	"database/sql"
	"log"
	"net/url"
	"runtime"
)

// DbString builds the sqlite connection string for the history database at
// path. Read-only connections are kept separate from the single writer.
func DbString(path string, readonly bool) string {
	params := make(url.Values)
	params.Add("_journal_mode", "WAL")
	params.Add("_busy_timeout", "5000")
	params.Add("_synchronous", "NORMAL")
	params.Add("_foreign_keys", "ON")
	if readonly {
		params.Add("mode", "ro")
	} else {
		params.Add("_txlock", "IMMEDIATE")
		params.Add("mode", "rwc")
	}
	return "file:" + path + "?" + params.Encode()
}

func InitDatabase(path string, readonly bool) *sql.DB {
	db, err := sql.Open("sqlite", DbString(path, readonly))
	if err != nil {
		log.Fatal("fatal error opening sqlite database:", err)
	}

	if readonly {
		db.SetMaxOpenConns(max(4, runtime.NumCPU()))
	} else {
		if _, err := db.Exec("PRAGMA temp_store=memory"); err != nil {
			log.Fatal(err)
		}
		db.SetMaxOpenConns(1)
	}

	return db
}
