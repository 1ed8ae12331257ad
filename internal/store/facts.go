package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/soyeahso/yui/internal/domain"
)

// CreateFact appends a fact. Facts are never deduplicated.
func (s *ChatStore) CreateFact(fact domain.Fact) error {
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO facts (id, contact_id, content, created_at) VALUES (?, ?, ?, ?)`,
		fact.ID, fact.ContactID, fact.Content, formatTime(fact.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}
	return nil
}

// GetFacts returns all facts for a contact in the order they were learned.
func (s *ChatStore) GetFacts(contactID string) ([]domain.Fact, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, contact_id, content, created_at
		 FROM facts WHERE contact_id = ?
		 ORDER BY created_at, rowid`, contactID,
	)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// SearchFacts finds facts matching the query using FTS5, best match first.
// A limit of 0 defaults to 20.
func (s *ChatStore) SearchFacts(contactID, query string, limit int) ([]domain.Fact, error) {
	if limit <= 0 {
		limit = 20
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.sql.Query(
		`SELECT f.id, f.contact_id, f.content, f.created_at
		 FROM facts_fts
		 JOIN facts f ON f.rowid = facts_fts.rowid
		 WHERE facts_fts MATCH ?
		   AND f.contact_id = ?
		 ORDER BY rank
		 LIMIT ?`,
		match, contactID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// ftsQuery turns free text into an FTS5 query where every word must match
// as a prefix. Punctuation is dropped so it is never read as query syntax.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		terms = append(terms, `"`+word+`"*`)
	}
	return strings.Join(terms, " ")
}

func scanFacts(rows *sql.Rows) ([]domain.Fact, error) {
	var facts []domain.Fact
	for rows.Next() {
		var f domain.Fact
		var createdAt string
		if err := rows.Scan(&f.ID, &f.ContactID, &f.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f.CreatedAt = parseTime(createdAt)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
