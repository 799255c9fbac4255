package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guanke/assistbot/internal/store"
)

func TestDump(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.db")

	st, err := store.OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, st.InsertUser(ctx, &store.User{ChatID: 1, Username: "one"}))
	require.NoError(t, st.InsertUser(ctx, &store.User{ChatID: 2, Username: "two"}))
	require.NoError(t, st.InsertChatHistory(ctx, &store.ChatHistoryEntry{ChatID: 1, UserInput: "hi", BotResponse: "hello", Timestamp: time.Unix(1700000000, 0)}))
	require.NoError(t, st.Close())

	ro, err := store.OpenBoltReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()

	var buf bytes.Buffer
	counts, err := dump(ro, &buf)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"users": 2, "chat_history": 1}, counts)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var last line
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, "chat_history", last.Collection)
	assert.Contains(t, string(last.Document), `"bot_response":"hello"`)
}
