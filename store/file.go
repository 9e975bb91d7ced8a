package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"duochat/models"
)

// File keeps users and chats in two line-oriented UTF-8 text files:
//
//	users: one JSON account per line
//	chats: two lines per chat, the member array then the entry array
type File struct {
	UsersPath string
	ChatsPath string
}

// NewFile returns a File store over the given paths.
func NewFile(usersPath, chatsPath string) *File {
	return &File{UsersPath: usersPath, ChatsPath: chatsPath}
}

func (f *File) LoadUsers() ([]models.Account, error) {
	lines, err := readLines(f.UsersPath)
	if err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(lines))
	for i, line := range lines {
		var a models.Account
		if err := json.Unmarshal(line, &a); err != nil {
			return nil, fmt.Errorf("store: %s line %d: %w", f.UsersPath, i+1, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (f *File) SaveUsers(accounts []models.Account) error {
	var buf bytes.Buffer
	for _, a := range accounts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("store: marshal account %s: %w", a.Login, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return writeAtomic(f.UsersPath, buf.Bytes())
}

func (f *File) LoadChats() ([]models.ChatRecord, error) {
	lines, err := readLines(f.ChatsPath)
	if err != nil {
		return nil, err
	}
	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("store: %s has an odd number of lines", f.ChatsPath)
	}

	chats := make([]models.ChatRecord, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		var rec models.ChatRecord
		if err := json.Unmarshal(lines[i], &rec.Members); err != nil {
			return nil, fmt.Errorf("store: %s line %d: %w", f.ChatsPath, i+1, err)
		}
		if err := json.Unmarshal(lines[i+1], &rec.Entries); err != nil {
			return nil, fmt.Errorf("store: %s line %d: %w", f.ChatsPath, i+2, err)
		}
		chats = append(chats, rec)
	}
	return chats, nil
}

func (f *File) SaveChats(chats []models.ChatRecord) error {
	var buf bytes.Buffer
	for _, rec := range chats {
		members, err := json.Marshal(rec.Members)
		if err != nil {
			return fmt.Errorf("store: marshal chat members: %w", err)
		}
		entries := rec.Entries
		if entries == nil {
			entries = []models.Entry{}
		}
		logJSON, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("store: marshal chat log: %w", err)
		}
		buf.Write(members)
		buf.WriteByte('\n')
		buf.Write(logJSON)
		buf.WriteByte('\n')
	}
	return writeAtomic(f.ChatsPath, buf.Bytes())
}

// readLines returns the non-empty lines of path; a missing file is empty.
func readLines(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	return lines, scanner.Err()
}

// writeAtomic replaces path with data via a temp file and rename so a crash
// mid-write never leaves a truncated store behind.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}
