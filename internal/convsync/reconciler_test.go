package convsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saravenpi/baatcheet/internal/models"
)

func msg(id int64, text string) models.Message {
	return models.Message{ID: id, ConversationID: 16, SenderID: 2, Text: text}
}

func local(clientID, text string) models.Message {
	return models.Message{ConversationID: 16, SenderID: 1, Text: text, ClientID: clientID}
}

func echo(id int64, clientID, text string) models.Message {
	m := msg(id, text)
	m.SenderID = 1
	m.ClientID = clientID
	return m
}

// ids renders a view as IDs, with local entries shown as their client id.
func ids(view []models.Message) []any {
	out := make([]any, len(view))
	for i, m := range view {
		if m.Confirmed() {
			out[i] = m.ID
		} else {
			out[i] = m.ClientID
		}
	}
	return out
}

func countID(view []models.Message, id int64) int {
	n := 0
	for _, m := range view {
		if m.ID == id {
			n++
		}
	}
	return n
}

func TestReconcilerLoadHistory(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Message{msg(3, "c"), msg(2, "b"), msg(1, "a")})
	assert.Equal(t, []any{int64(3), int64(2), int64(1)}, ids(r.View()))

	t.Run("second load replaces instead of merging", func(t *testing.T) {
		r.InsertLocalOptimistic(local("c1", "pending"))
		r.LoadHistory([]models.Message{msg(7, "x")})
		assert.Equal(t, []any{int64(7)}, ids(r.View()))
	})

	t.Run("duplicate ids in a batch collapse", func(t *testing.T) {
		r.LoadHistory([]models.Message{msg(5, "e"), msg(5, "e"), msg(4, "d")})
		assert.Equal(t, []any{int64(5), int64(4)}, ids(r.View()))
	})
}

func TestReconcilerDedupIdempotence(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Message{msg(9, "hi")})

	assert.True(t, r.InsertInbound(msg(10, "one")))
	for n := 0; n < 4; n++ {
		assert.False(t, r.InsertInbound(msg(10, "one")))
	}
	assert.False(t, r.InsertInbound(msg(9, "hi")))

	view := r.View()
	assert.Equal(t, 1, countID(view, 10))
	assert.Equal(t, 1, countID(view, 9))
	assert.Len(t, view, 2)
}

func TestReconcilerOptimisticCollapse(t *testing.T) {
	cases := []struct {
		name  string
		apply func(r *Reconciler)
	}{
		{
			name: "confirm then echo",
			apply: func(r *Reconciler) {
				r.ConfirmLocalSend("c1", echo(10, "c1", "yo"))
				r.InsertInbound(echo(10, "c1", "yo"))
			},
		},
		{
			name: "echo then confirm",
			apply: func(r *Reconciler) {
				r.InsertInbound(echo(10, "c1", "yo"))
				r.ConfirmLocalSend("c1", echo(10, "c1", "yo"))
			},
		},
		{
			name: "confirm only",
			apply: func(r *Reconciler) {
				r.ConfirmLocalSend("c1", echo(10, "c1", "yo"))
			},
		},
		{
			name: "echo only",
			apply: func(r *Reconciler) {
				r.InsertInbound(echo(10, "c1", "yo"))
			},
		},
		{
			name: "echo without client id then confirm",
			apply: func(r *Reconciler) {
				r.InsertInbound(msg(10, "yo"))
				r.ConfirmLocalSend("c1", echo(10, "c1", "yo"))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReconciler()
			r.LoadHistory([]models.Message{msg(9, "hi")})
			r.InsertLocalOptimistic(local("c1", "yo"))

			tc.apply(r)

			view := r.View()
			require.Len(t, view, 2)
			assert.Equal(t, 1, countID(view, 10))
			assert.Equal(t, []any{int64(10), int64(9)}, ids(view))
			assert.Equal(t, models.StatusConfirmed, view[0].Status)
		})
	}
}

func TestReconcilerConfirmKeepsPosition(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Message{msg(9, "hi")})
	r.InsertLocalOptimistic(local("c1", "mine"))
	r.InsertInbound(msg(11, "theirs"))
	assert.Equal(t, []any{int64(11), "c1", int64(9)}, ids(r.View()))

	t.Run("older id stays in its slot", func(t *testing.T) {
		r := NewReconciler()
		r.LoadHistory([]models.Message{msg(9, "hi")})
		r.InsertLocalOptimistic(local("c1", "mine"))
		r.InsertInbound(msg(11, "theirs"))

		assert.True(t, r.ConfirmLocalSend("c1", echo(10, "c1", "mine")))
		assert.Equal(t, []any{int64(11), int64(10), int64(9)}, ids(r.View()))
	})

	t.Run("newer id moves above older confirmed", func(t *testing.T) {
		r := NewReconciler()
		r.LoadHistory([]models.Message{msg(9, "hi")})
		r.InsertLocalOptimistic(local("c1", "mine"))
		r.InsertInbound(msg(11, "theirs"))

		r.ConfirmLocalSend("c1", echo(12, "c1", "mine"))
		assert.Equal(t, []any{int64(12), int64(11), int64(9)}, ids(r.View()))
	})

	t.Run("pending entries are not reordered", func(t *testing.T) {
		r := NewReconciler()
		r.LoadHistory([]models.Message{msg(9, "hi")})
		r.InsertLocalOptimistic(local("c1", "first"))
		r.InsertLocalOptimistic(local("c2", "second"))

		r.ConfirmLocalSend("c1", echo(10, "c1", "first"))
		assert.Equal(t, []any{"c2", int64(10), int64(9)}, ids(r.View()))
	})
}

func TestReconcilerFailedSendVisibility(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Message{msg(9, "hi")})
	r.InsertLocalOptimistic(local("c1", "yo"))

	assert.True(t, r.FailLocalSend("c1"))
	assert.False(t, r.FailLocalSend("unknown"))

	view := r.View()
	require.Len(t, view, 2)
	assert.Equal(t, models.StatusFailed, view[0].Status)
	assert.Equal(t, "yo", view[0].Text)
	assert.Equal(t, "c1", view[0].ClientID)

	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "c1", failed[0].ClientID)

	t.Run("late echo of a failed send confirms it", func(t *testing.T) {
		assert.True(t, r.InsertInbound(echo(10, "c1", "yo")))
		assert.Equal(t, []any{int64(10), int64(9)}, ids(r.View()))
		assert.Empty(t, r.Failed())
	})
}

func TestReconcilerInboundWithoutClientIDDoesNotMatchLocal(t *testing.T) {
	r := NewReconciler()
	r.InsertLocalOptimistic(local("c1", "mine"))
	r.InsertInbound(msg(4, "theirs"))

	view := r.View()
	require.Len(t, view, 2)
	assert.Equal(t, []any{int64(4), "c1"}, ids(view))
	assert.Equal(t, models.StatusPending, view[1].Status)
}

func TestReconcilerOutOfOrderInbound(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Message{msg(9, "nine")})
	r.InsertInbound(msg(11, "eleven"))
	r.InsertInbound(msg(10, "ten"))

	assert.Equal(t, []any{int64(11), int64(10), int64(9)}, ids(r.View()))
}

func TestReconcilerLateOlderInboundStaysBelowPending(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Message{msg(9, "nine")})
	r.InsertLocalOptimistic(local("c1", "mine"))

	assert.True(t, r.InsertInbound(msg(8, "eight")))
	assert.Equal(t, []any{"c1", int64(9), int64(8)}, ids(r.View()))

	t.Run("newer arrival first", func(t *testing.T) {
		r := NewReconciler()
		r.LoadHistory([]models.Message{msg(9, "nine")})
		r.InsertLocalOptimistic(local("c1", "mine"))

		r.InsertInbound(msg(10, "ten"))
		r.InsertInbound(msg(8, "eight"))
		assert.Equal(t, []any{int64(10), "c1", int64(9), int64(8)}, ids(r.View()))
	})

	t.Run("failed entry holds its slot too", func(t *testing.T) {
		r := NewReconciler()
		r.LoadHistory([]models.Message{msg(9, "nine")})
		r.InsertLocalOptimistic(local("c1", "mine"))
		r.FailLocalSend("c1")

		r.InsertInbound(msg(7, "seven"))
		r.InsertInbound(msg(8, "eight"))
		assert.Equal(t, []any{"c1", int64(9), int64(8), int64(7)}, ids(r.View()))
	})

	t.Run("confirm after a late arrival", func(t *testing.T) {
		r := NewReconciler()
		r.LoadHistory([]models.Message{msg(9, "nine")})
		r.InsertLocalOptimistic(local("c1", "mine"))
		r.InsertInbound(msg(8, "eight"))

		assert.True(t, r.ConfirmLocalSend("c1", echo(10, "c1", "mine")))
		assert.Equal(t, []any{int64(10), int64(9), int64(8)}, ids(r.View()))
	})
}

func TestReconcilerViewIsACopy(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Message{msg(1, "a")})

	view := r.View()
	view[0].Text = "changed"

	assert.Equal(t, "a", r.View()[0].Text)
}
