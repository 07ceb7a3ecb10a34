package chat

// Vote is a thumbs up/down rating on an ai message.
type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

// Valid reports whether v is one of the accepted votes.
func (v Vote) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// FeedbackMap maps ai message ids to the last vote cast on them.
type FeedbackMap map[string]Vote

// Clone returns an independent copy of the map.
func (f FeedbackMap) Clone() FeedbackMap {
	out := make(FeedbackMap, len(f))
	for id, vote := range f {
		out[id] = vote
	}
	return out
}
