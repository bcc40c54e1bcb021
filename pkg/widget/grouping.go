package widget

import (
	"time"

	"tpchat/pkg/models"
)

// groupWindow is the gap under which consecutive same-sender messages
// collapse into one visual group.
const groupWindow = 5 * time.Minute

// DisplayMessage is a message plus its presentation flags. These are
// recomputed on every render and never persisted; the stored conversation
// stays free of derived state.
type DisplayMessage struct {
	models.Message
	GroupStart    bool
	GroupEnd      bool
	ShowTimestamp bool
	// DateSeparator labels a separator rendered before this message;
	// empty means none.
	DateSeparator string
}

// BuildDisplay derives grouping, timestamp visibility and date separators
// for an ordered message list. It is a pure function of its inputs:
// identical lists produce identical flags.
func BuildDisplay(msgs []models.Message, now time.Time, loc *time.Location) []DisplayMessage {
	if loc == nil {
		loc = time.Local
	}
	out := make([]DisplayMessage, len(msgs))
	for i, m := range msgs {
		d := DisplayMessage{Message: m}

		sameGroupAsPrev := i > 0 && sameGroup(msgs[i-1], m, loc)
		sameGroupAsNext := i < len(msgs)-1 && sameGroup(m, msgs[i+1], loc)

		d.GroupStart = !sameGroupAsPrev
		d.GroupEnd = !sameGroupAsNext
		// only the last message of a group carries a timestamp; an
		// isolated message is the last of its own group
		d.ShowTimestamp = d.GroupEnd

		if i > 0 && !sameDay(msgs[i-1].Created, m.Created, loc) {
			d.DateSeparator = dateLabel(m.Created, now, loc)
		}
		out[i] = d
	}
	return out
}

func sameGroup(prev, cur models.Message, loc *time.Location) bool {
	if prev.Sender != cur.Sender {
		return false
	}
	gap := cur.Created.Sub(prev.Created)
	if gap < 0 {
		gap = -gap
	}
	return gap <= groupWindow && sameDay(prev.Created, cur.Created, loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// dateLabel renders a separator label relative to render time: Today,
// Yesterday, or the calendar date.
func dateLabel(t, now time.Time, loc *time.Location) string {
	if sameDay(t, now, loc) {
		return "Today"
	}
	if sameDay(t, now.AddDate(0, 0, -1), loc) {
		return "Yesterday"
	}
	return t.In(loc).Format("Jan 2, 2006")
}
