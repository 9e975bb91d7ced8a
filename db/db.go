package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"duochat/models"
)

// DB is the SQLite persistence backend. It stores the same record shapes as
// the text files: accounts, chat member pairs and ordered chat entries.
type DB struct {
	conn *sql.DB
}

func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			login TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			roles TEXT NOT NULL DEFAULT '["USER"]'
		)`,
		`CREATE TABLE IF NOT EXISTS chats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			members TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			text TEXT NOT NULL,
			unread_by TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, seq)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return err
		}
	}

	return db.migrate()
}

// migrate adds columns introduced after the first schema version.
func (db *DB) migrate() error {
	if !db.columnExists("users", "blocked_until") {
		if _, err := db.conn.Exec("ALTER TABLE users ADD COLUMN blocked_until INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	return nil
}

// columnExists checks if a column exists in a table
func (db *DB) columnExists(table, column string) bool {
	query := "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	var count int
	err := db.conn.QueryRow(query, table, column).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// User methods
func (db *DB) LoadUsers() ([]models.Account, error) {
	rows, err := db.conn.Query("SELECT login, password, roles, blocked_until FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var roles string
		if err := rows.Scan(&a.Login, &a.Password, &roles, &a.BlockedUntil); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(roles), &a.Roles); err != nil {
			return nil, fmt.Errorf("db: roles of %s: %w", a.Login, err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// SaveUsers replaces the users table with accounts in one transaction.
func (db *DB) SaveUsers(accounts []models.Account) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM users"); err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO users (login, password, roles, blocked_until) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range accounts {
		roles, err := json.Marshal(a.Roles)
		if err != nil {
			return fmt.Errorf("db: roles of %s: %w", a.Login, err)
		}
		if _, err := stmt.Exec(a.Login, a.Password, string(roles), a.BlockedUntil); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Chat methods
func (db *DB) LoadChats() ([]models.ChatRecord, error) {
	rows, err := db.conn.Query("SELECT id, members FROM chats ORDER BY id")
	if err != nil {
		return nil, err
	}

	var ids []int64
	var chats []models.ChatRecord
	for rows.Next() {
		var id int64
		var members string
		if err := rows.Scan(&id, &members); err != nil {
			rows.Close()
			return nil, err
		}
		var rec models.ChatRecord
		if err := json.Unmarshal([]byte(members), &rec.Members); err != nil {
			rows.Close()
			return nil, fmt.Errorf("db: chat %d members: %w", id, err)
		}
		ids = append(ids, id)
		chats = append(chats, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		entries, err := db.getEntries(id)
		if err != nil {
			return nil, err
		}
		chats[i].Entries = entries
	}

	return chats, nil
}

func (db *DB) getEntries(chatID int64) ([]models.Entry, error) {
	rows, err := db.conn.Query("SELECT text, unread_by FROM messages WHERE chat_id = ? ORDER BY seq ASC", chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		var unreadBy string
		if err := rows.Scan(&e.Text, &unreadBy); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(unreadBy), &e.UnreadBy); err != nil {
			return nil, fmt.Errorf("db: chat %d unread set: %w", chatID, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// SaveChats replaces all chats and their logs in one transaction.
func (db *DB) SaveChats(chats []models.ChatRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chats"); err != nil {
		return err
	}

	msgStmt, err := tx.Prepare("INSERT INTO messages (chat_id, seq, text, unread_by) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer msgStmt.Close()

	for _, rec := range chats {
		members, err := json.Marshal(rec.Members)
		if err != nil {
			return err
		}
		result, err := tx.Exec("INSERT INTO chats (members) VALUES (?)", string(members))
		if err != nil {
			return err
		}
		chatID, err := result.LastInsertId()
		if err != nil {
			return err
		}

		for seq, e := range rec.Entries {
			unreadBy := e.UnreadBy
			if unreadBy == nil {
				unreadBy = []string{}
			}
			data, err := json.Marshal(unreadBy)
			if err != nil {
				return err
			}
			if _, err := msgStmt.Exec(chatID, seq, e.Text, string(data)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}
