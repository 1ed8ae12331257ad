package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/yui/internal/domain"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("store: not found")

// timeLayout sorts lexically in chronological order for UTC times.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// ChatStore persists contacts, conversations, messages and facts.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a chat store using the given database.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// GetOrCreateContact returns the contact with the given name, creating it if
// needed, and makes sure the contact has an open conversation.
func (s *ChatStore) GetOrCreateContact(name string) (*domain.Contact, error) {
	var contact domain.Contact
	err := s.db.withTx(func(tx *sql.Tx) error {
		var createdAt string
		err := tx.QueryRow(
			`SELECT id, name, created_at FROM contacts WHERE name = ?`, name,
		).Scan(&contact.ID, &contact.Name, &createdAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			contact = domain.NewContact(name)
			if _, err := tx.Exec(
				`INSERT INTO contacts (id, name, created_at) VALUES (?, ?, ?)`,
				contact.ID, contact.Name, formatTime(contact.CreatedAt),
			); err != nil {
				return fmt.Errorf("insert contact: %w", err)
			}
			s.db.log.Info().Str("contact", name).Msg("contact created")
		case err != nil:
			return fmt.Errorf("select contact: %w", err)
		default:
			contact.CreatedAt = parseTime(createdAt)
		}

		open, err := currentConversation(tx, contact.ID)
		if err != nil {
			return err
		}
		if open == nil {
			return insertConversation(tx, domain.NewConversation(contact.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// CurrentConversation returns the contact's open conversation, or nil if none is open.
func (s *ChatStore) CurrentConversation(contactID string) (*domain.Conversation, error) {
	return currentConversation(s.db.sql, contactID)
}

// CreateConversation closes any open conversation for the contact and opens a new one.
func (s *ChatStore) CreateConversation(contactID string) (*domain.Conversation, error) {
	conv := domain.NewConversation(contactID)
	err := s.db.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`UPDATE conversations SET end_time = ? WHERE contact_id = ? AND end_time IS NULL`,
			formatTime(conv.StartTime), contactID,
		); err != nil {
			return fmt.Errorf("close open conversation: %w", err)
		}
		return insertConversation(tx, conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateConversation writes the end time and summary of a conversation.
func (s *ChatStore) UpdateConversation(conv domain.Conversation) error {
	var endTime sql.NullString
	if conv.EndTime != nil {
		endTime = sql.NullString{String: formatTime(*conv.EndTime), Valid: true}
	}
	var summary sql.NullString
	if conv.Summary != "" {
		summary = sql.NullString{String: conv.Summary, Valid: true}
	}

	res, err := s.db.sql.Exec(
		`UPDATE conversations SET end_time = ?, summary = ? WHERE id = ?`,
		endTime, summary, conv.ID,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return expectRow(res)
}

// GetConversation returns a conversation by id.
func (s *ChatStore) GetConversation(id string) (*domain.Conversation, error) {
	row := s.db.sql.QueryRow(
		`SELECT id, contact_id, start_time, end_time, summary FROM conversations WHERE id = ?`, id,
	)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return conv, err
}

// GetConversations returns the contact's conversations, newest first.
func (s *ChatStore) GetConversations(contactID string) ([]domain.Conversation, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, contact_id, start_time, end_time, summary
		 FROM conversations WHERE contact_id = ?
		 ORDER BY start_time DESC, rowid DESC`, contactID,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

// CreateMessage persists a single message.
func (s *ChatStore) CreateMessage(msg domain.Message) error {
	return s.CreateMessages([]domain.Message{msg})
}

// CreateMessages persists messages in order, atomically.
func (s *ChatStore) CreateMessages(msgs []domain.Message) error {
	return s.db.withTx(func(tx *sql.Tx) error {
		for _, msg := range msgs {
			if err := insertMessage(tx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateMessage rewrites the mutable fields of a message (its conversation and content).
func (s *ChatStore) UpdateMessage(msg domain.Message) error {
	res, err := s.db.sql.Exec(
		`UPDATE messages SET conversation_id = ?, content = ? WHERE id = ?`,
		msg.ConversationID, msg.Content, msg.ID,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return expectRow(res)
}

// GetMessages returns up to limit of the contact's most recent messages,
// newest first. A limit <= 0 returns everything.
func (s *ChatStore) GetMessages(contactID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.sql.Query(
		`SELECT id, contact_id, conversation_id, role, content, message_type,
		        tool_use_id, tool_use_name, tool_use_input, timestamp
		 FROM messages WHERE contact_id = ?
		 ORDER BY timestamp DESC, rowid DESC
		 LIMIT ?`, contactID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetMessagesForConversation returns all messages of a conversation, newest first.
func (s *ChatStore) GetMessagesForConversation(conversationID string) ([]domain.Message, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, contact_id, conversation_id, role, content, message_type,
		        tool_use_id, tool_use_name, tool_use_input, timestamp
		 FROM messages WHERE conversation_id = ?
		 ORDER BY timestamp DESC, rowid DESC`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversation messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Stats counts what is stored for a contact.
type Stats struct {
	Messages      int
	Conversations int
	Facts         int
}

// Stats returns row counts for the contact.
func (s *ChatStore) Stats(contactID string) (Stats, error) {
	var st Stats
	err := s.db.sql.QueryRow(
		`SELECT
			(SELECT COUNT(*) FROM messages WHERE contact_id = ?),
			(SELECT COUNT(*) FROM conversations WHERE contact_id = ?),
			(SELECT COUNT(*) FROM facts WHERE contact_id = ?)`,
		contactID, contactID, contactID,
	).Scan(&st.Messages, &st.Conversations, &st.Facts)
	if err != nil {
		return Stats{}, fmt.Errorf("count rows: %w", err)
	}
	return st, nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func currentConversation(q queryRower, contactID string) (*domain.Conversation, error) {
	row := q.QueryRow(
		`SELECT id, contact_id, start_time, end_time, summary
		 FROM conversations WHERE contact_id = ? AND end_time IS NULL
		 ORDER BY start_time DESC LIMIT 1`, contactID,
	)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select current conversation: %w", err)
	}
	return conv, nil
}

func insertConversation(tx *sql.Tx, conv domain.Conversation) error {
	if _, err := tx.Exec(
		`INSERT INTO conversations (id, contact_id, start_time) VALUES (?, ?, ?)`,
		conv.ID, conv.ContactID, formatTime(conv.StartTime),
	); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func insertMessage(tx *sql.Tx, msg domain.Message) error {
	var toolID, toolName, toolInput sql.NullString
	if msg.ToolUse != nil {
		input := msg.ToolUse.Input
		if input == nil {
			input = map[string]any{}
		}
		data, err := json.Marshal(input)
		if err != nil {
			return fmt.Errorf("encode tool input: %w", err)
		}
		toolID = sql.NullString{String: msg.ToolUse.ID, Valid: true}
		toolName = sql.NullString{String: msg.ToolUse.Name, Valid: true}
		toolInput = sql.NullString{String: string(data), Valid: true}
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	if _, err := tx.Exec(
		`INSERT INTO messages (id, contact_id, conversation_id, role, content, message_type,
		                       tool_use_id, tool_use_name, tool_use_input, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ContactID, msg.ConversationID, string(msg.Role), msg.Content, string(msg.Type()),
		toolID, toolName, toolInput, formatTime(ts),
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func scanConversation(row scanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	var start string
	var end, summary sql.NullString
	if err := row.Scan(&conv.ID, &conv.ContactID, &start, &end, &summary); err != nil {
		return nil, err
	}
	conv.StartTime = parseTime(start)
	if end.Valid {
		t := parseTime(end.String)
		conv.EndTime = &t
	}
	conv.Summary = summary.String
	return &conv, nil
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role, msgType, ts string
		var toolID, toolName, toolInput sql.NullString

		if err := rows.Scan(
			&msg.ID, &msg.ContactID, &msg.ConversationID, &role, &msg.Content, &msgType,
			&toolID, &toolName, &toolInput, &ts,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.Timestamp = parseTime(ts)

		if domain.MessageType(msgType) == domain.MessageTypeToolUse {
			use := domain.ToolUse{ID: toolID.String, Name: toolName.String}
			if toolInput.Valid && toolInput.String != "" {
				if err := json.Unmarshal([]byte(toolInput.String), &use.Input); err != nil {
					return nil, fmt.Errorf("decode tool input for %s: %w", msg.ID, err)
				}
			}
			msg.ToolUse = &use
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
