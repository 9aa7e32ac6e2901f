package convsync

import (
	"cmp"
	"slices"

	"github.com/saravenpi/baatcheet/internal/models"
)

// Reconciler holds the canonical message list of the open conversation,
// newest first. It is owned by a single Session loop and is not safe for
// concurrent use.
//
// Confirmed entries are kept in descending ID order. Pending and failed
// entries keep the slot they were inserted into until they resolve: a
// confirmed message only ever lands above the local entries that rest on
// an older confirmed entry, never below them.
type Reconciler struct {
	entries []models.Message
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// LoadHistory replaces the view with a confirmed batch from the server.
// Calling it again discards everything, including local entries.
func (r *Reconciler) LoadHistory(batch []models.Message) {
	r.entries = make([]models.Message, 0, len(batch))
	seen := make(map[int64]bool, len(batch))
	for _, m := range batch {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		m.Status = models.StatusConfirmed
		r.entries = append(r.entries, m)
	}
	slices.SortFunc(r.entries, func(a, b models.Message) int {
		return cmp.Compare(b.ID, a.ID)
	})
}

// InsertLocalOptimistic puts a not-yet-sent message at the head as pending.
func (r *Reconciler) InsertLocalOptimistic(m models.Message) {
	m.ID = 0
	m.Status = models.StatusPending
	r.entries = slices.Insert(r.entries, 0, m)
}

// ConfirmLocalSend resolves the pending entry for clientID with the
// server's copy. It reports whether the view changed; it does not change
// when the push channel already delivered the same message.
func (r *Reconciler) ConfirmLocalSend(clientID string, confirmed models.Message) bool {
	confirmed.Status = models.StatusConfirmed
	if confirmed.ClientID == "" {
		confirmed.ClientID = clientID
	}

	if r.indexOfID(confirmed.ID) >= 0 {
		// Already delivered by push. Drop a leftover local copy, if any.
		if i := r.indexOfLocal(clientID); i >= 0 {
			r.entries = slices.Delete(r.entries, i, i+1)
			return true
		}
		return false
	}

	if i := r.indexOfLocal(clientID); i >= 0 {
		r.resolveLocal(i, confirmed)
		return true
	}

	r.insertConfirmed(confirmed)
	return true
}

// FailLocalSend marks the pending entry for clientID as failed. The entry
// stays visible.
func (r *Reconciler) FailLocalSend(clientID string) bool {
	for i := range r.entries {
		if r.entries[i].Status == models.StatusPending && r.entries[i].ClientID == clientID {
			r.entries[i].Status = models.StatusFailed
			return true
		}
	}
	return false
}

// InsertInbound applies one push delivery. An echo of a local send
// replaces the local entry in place, a repeated ID is dropped, anything
// else is placed by ID. It reports whether the view changed.
func (r *Reconciler) InsertInbound(m models.Message) bool {
	m.Status = models.StatusConfirmed

	if m.ClientID != "" {
		if i := r.indexOfLocal(m.ClientID); i >= 0 {
			if r.indexOfID(m.ID) >= 0 {
				r.entries = slices.Delete(r.entries, i, i+1)
				return true
			}
			r.resolveLocal(i, m)
			return true
		}
	}

	if r.indexOfID(m.ID) >= 0 {
		return false
	}

	r.insertConfirmed(m)
	return true
}

// View returns a newest-first copy of the current entries.
func (r *Reconciler) View() []models.Message {
	return slices.Clone(r.entries)
}

// Failed returns the entries whose send failed, newest first.
func (r *Reconciler) Failed() []models.Message {
	var out []models.Message
	for _, m := range r.entries {
		if m.Status == models.StatusFailed {
			out = append(out, m)
		}
	}
	return out
}

// Reset drops all state.
func (r *Reconciler) Reset() {
	r.entries = nil
}

func (r *Reconciler) indexOfID(id int64) int {
	if id == 0 {
		return -1
	}
	for i, m := range r.entries {
		if m.Status == models.StatusConfirmed && m.ID == id {
			return i
		}
	}
	return -1
}

// indexOfLocal finds an unresolved local entry. Failed entries count: the
// server may have stored a message whose HTTP response was lost.
func (r *Reconciler) indexOfLocal(clientID string) int {
	if clientID == "" {
		return -1
	}
	for i, m := range r.entries {
		if m.Status != models.StatusConfirmed && m.ClientID == clientID {
			return i
		}
	}
	return -1
}

// insertConfirmed puts m directly above the first confirmed entry with a
// lower ID, and above any local entries stacked on that entry.
func (r *Reconciler) insertConfirmed(m models.Message) {
	at := len(r.entries)
	for i, e := range r.entries {
		if e.Status == models.StatusConfirmed && e.ID < m.ID {
			at = i
			break
		}
	}
	for at > 0 && r.entries[at-1].Status != models.StatusConfirmed {
		at--
	}
	r.entries = slices.Insert(r.entries, at, m)
}

// resolveLocal replaces the local entry at i with its confirmed copy. The
// copy keeps the slot unless its ID would break the confirmed order there.
func (r *Reconciler) resolveLocal(i int, m models.Message) {
	if r.fitsAt(i, m.ID) {
		r.entries[i] = m
		return
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	r.insertConfirmed(m)
}

func (r *Reconciler) fitsAt(i int, id int64) bool {
	for j := i - 1; j >= 0; j-- {
		if r.entries[j].Status == models.StatusConfirmed {
			if r.entries[j].ID <= id {
				return false
			}
			break
		}
	}
	for j := i + 1; j < len(r.entries); j++ {
		if r.entries[j].Status == models.StatusConfirmed {
			if r.entries[j].ID >= id {
				return false
			}
			break
		}
	}
	return true
}
