package mysql

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
	// Rows owned by someone else are left untouched; the read-back below then finds nothing.
	stmt := "INSERT INTO `conversation` (`id`, `user_id`, `messages`) VALUES (?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE " +
		"`updated_ts` = IF(`user_id` = VALUES(`user_id`), CURRENT_TIMESTAMP, `updated_ts`), " +
		"`messages` = IF(`user_id` = VALUES(`user_id`), VALUES(`messages`), `messages`)"
	if _, err := d.db.ExecContext(ctx, stmt, upsert.ID, upsert.UserID, messages); err != nil {
		return nil, err
	}

	list, err := d.ListConversations(ctx, &store.FindConversation{ID: &upsert.ID, UserID: &upsert.UserID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("conversation %s is owned by another user", upsert.ID)
	}
	return list[0], nil
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
		"SELECT `id`, `user_id`, `messages`, UNIX_TIMESTAMP(`created_ts`), UNIX_TIMESTAMP(`updated_ts`) FROM `conversation` WHERE %s ORDER BY `updated_ts` DESC, `created_ts` DESC",
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
