package communications

import (
	"context"
	"slices"

	"github.com/waddythomson/buwa-crm/internal/apperr"
	"github.com/waddythomson/buwa-crm/internal/db"
	"github.com/waddythomson/buwa-crm/internal/notes"
)

// Timeline merges the contact's communications and notes by creation time.
// A note anchored to a communication is placed directly after it.
func (s *Service) Timeline(ctx context.Context, contactID string) ([]TimelineEntry, error) {
	comms, err := s.ListByContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return nil, apperr.Validation("invalid contact id")
	}
	rows, err := s.queries.ListNotesByContact(ctx, pgID)
	if err != nil {
		return nil, apperr.Persistence(err, "list notes")
	}
	items := make([]notes.Note, 0, len(rows))
	for _, row := range rows {
		items = append(items, notes.FromRow(row))
	}
	return mergeTimeline(comms, items), nil
}

func mergeTimeline(comms []Communication, items []notes.Note) []TimelineEntry {
	known := make(map[string]bool, len(comms))
	for _, c := range comms {
		known[c.ID] = true
	}
	anchored := map[string][]notes.Note{}
	entries := make([]TimelineEntry, 0, len(comms)+len(items))
	for i := range comms {
		entries = append(entries, TimelineEntry{Kind: EntryCommunication, At: comms[i].CreatedAt, Communication: &comms[i]})
	}
	for i := range items {
		n := items[i]
		if n.AfterCommunicationID != "" && known[n.AfterCommunicationID] {
			anchored[n.AfterCommunicationID] = append(anchored[n.AfterCommunicationID], n)
			continue
		}
		entries = append(entries, TimelineEntry{Kind: EntryNote, At: n.CreatedAt, Note: &items[i]})
	}
	slices.SortStableFunc(entries, func(a, b TimelineEntry) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		// communications before notes at the same instant
		if a.Kind == b.Kind {
			return 0
		}
		if a.Kind == EntryCommunication {
			return -1
		}
		return 1
	})

	out := make([]TimelineEntry, 0, len(entries)+len(items))
	for _, e := range entries {
		out = append(out, e)
		if e.Communication == nil {
			continue
		}
		after := anchored[e.Communication.ID]
		slices.SortStableFunc(after, func(a, b notes.Note) int { return a.CreatedAt.Compare(b.CreatedAt) })
		for i := range after {
			out = append(out, TimelineEntry{Kind: EntryNote, At: after[i].CreatedAt, Note: &after[i]})
		}
	}
	return out
}
