package journal

// Mood describes a selectable mood tag.
type Mood struct {
	Key   string
	Label string
	Emoji string
}

// Moods is the catalog of selectable moods, in display order.
var Moods = []Mood{
	{Key: "happy", Label: "Happy", Emoji: "😊"},
	{Key: "loved", Label: "Loved", Emoji: "😍"},
	{Key: "content", Label: "Content", Emoji: "😌"},
	{Key: "thoughtful", Label: "Thoughtful", Emoji: "🤔"},
	{Key: "tired", Label: "Tired", Emoji: "😴"},
	{Key: "sad", Label: "Sad", Emoji: "😢"},
	{Key: "frustrated", Label: "Frustrated", Emoji: "😤"},
	{Key: "anxious", Label: "Anxious", Emoji: "😰"},
	{Key: "cool", Label: "Cool", Emoji: "😎"},
	{Key: "celebrating", Label: "Celebrating", Emoji: "🥳"},
	{Key: "grateful", Label: "Grateful", Emoji: "🙏"},
	{Key: "strong", Label: "Strong", Emoji: "💪"},
	{Key: "focused", Label: "Focused", Emoji: "🧠"},
	{Key: "excited", Label: "Excited", Emoji: "🤩"},
	{Key: "neutral", Label: "Neutral", Emoji: "😐"},
	{Key: "surprised", Label: "Surprised", Emoji: "😮"},
}

// MoodByKey looks up a mood in the catalog.
func MoodByKey(key string) (Mood, bool) {
	for _, m := range Moods {
		if m.Key == key {
			return m, true
		}
	}
	return Mood{}, false
}

// KnownMood reports whether key is in the catalog.
func KnownMood(key string) bool {
	_, ok := MoodByKey(key)
	return ok
}
