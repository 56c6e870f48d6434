package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

func (d *DB) UpsertConversation(ctx context.Context, upsert *store.Conversation) (*store.Conversation, error) {
	messages, err := store.MarshalMessages(upsert.Messages)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal messages")
	}
	stmt := `INSERT INTO conversation (id, user_id, messages) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			messages = excluded.messages,
			updated_ts = strftime('%s', 'now')
		WHERE conversation.user_id = excluded.user_id
		RETURNING created_ts, updated_ts`
	conversation := &store.Conversation{
		ID:       upsert.ID,
		UserID:   upsert.UserID,
		Messages: upsert.Messages,
	}
	if err := d.db.QueryRowContext(ctx, stmt, upsert.ID, upsert.UserID, messages).Scan(
		&conversation.CreatedTs,
		&conversation.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "`id` = ?"), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "`user_id` = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		"SELECT `id`, `user_id`, `messages`, `created_ts`, `updated_ts` FROM `conversation` WHERE %s ORDER BY `updated_ts` DESC, `created_ts` DESC",
		strings.Join(where, " AND "),
	)
	if v := find.Limit; v != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *v)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*store.Conversation{}
	for rows.Next() {
		c := &store.Conversation{}
		var messages string
		if err := rows.Scan(&c.ID, &c.UserID, &messages, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, err
		}
		if c.Messages, err = store.UnmarshalMessages(messages); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal messages of conversation %s", c.ID)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM `conversation` WHERE `id` = ?", delete.ID)
	return err
}
