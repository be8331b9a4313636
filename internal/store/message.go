package store

import (
	"database/sql"
	"time"
)

// UpsertMessage inserts or updates a message (idempotent on chat_jid + msg_id).
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (chat_jid, msg_id, sender_jid, author_jid, body, media_kind, media_subtype, from_me, status, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_jid, msg_id) DO UPDATE SET
			body = excluded.body,
			media_kind = excluded.media_kind,
			media_subtype = excluded.media_subtype,
			status = excluded.status`,
		m.ChatJID, m.MsgID, m.SenderJID, m.AuthorJID, m.Body, m.MediaKind, m.MediaSubtype, m.FromMe, m.Status, m.Timestamp, now)
	return err
}

// ListMessages returns messages for a chat using keyset pagination by
// timestamp, newest first.
func (db *DB) ListMessages(chatJID string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().Unix() + 1
	}
	rows, err := db.Query(`
		SELECT id, chat_jid, msg_id, sender_jid, author_jid, body, media_kind, media_subtype, from_me, status, timestamp
		FROM messages
		WHERE chat_jid = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`, chatJID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatJID, &m.MsgID, &m.SenderJID, &m.AuthorJID, &m.Body, &m.MediaKind, &m.MediaSubtype, &m.FromMe, &m.Status, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// GetMessage returns a message by chat and message id, nil when missing.
func (db *DB) GetMessage(chatJID, msgID string) (*Message, error) {
	var m Message
	err := db.QueryRow(`
		SELECT id, chat_jid, msg_id, sender_jid, author_jid, body, media_kind, media_subtype, from_me, status, timestamp
		FROM messages WHERE chat_jid = ? AND msg_id = ?`, chatJID, msgID).
		Scan(&m.ID, &m.ChatJID, &m.MsgID, &m.SenderJID, &m.AuthorJID, &m.Body, &m.MediaKind, &m.MediaSubtype, &m.FromMe, &m.Status, &m.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
