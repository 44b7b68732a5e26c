package triage

import (
	"regexp"
	"strings"
	"time"
)

type Intent string

const (
	IntentInformational Intent = "informational"
	IntentGreeting      Intent = "greeting"
	IntentFarewell      Intent = "farewell"
	IntentThanks        Intent = "thanks"
	IntentEmotion       Intent = "emotion"
)

// IsSocial reports whether the intent is answered with a canned response.
func (i Intent) IsSocial() bool {
	return i != IntentInformational && i != ""
}

type valence int

const (
	valenceNeutral valence = iota
	valencePositive
	valenceNegative
)

const filler = `(?:(?:ok|okay|oh|well|alright|and|so)\s+)?`

// Cues must open a clause. Short or ambiguous cues must be the whole clause
// so product names such as "TY-100" or "Good Day biscuits" stay informational.
var (
	clauseSplit     = regexp.MustCompile(`[,;.!?]+`)
	thanksPattern   = regexp.MustCompile(`(?i)^` + filler + `(?:(?:thank you|thanks|thank u|many thanks|much appreciated|appreciate it)\b.*|(?:ty|thx|cheers)(?: mate)?)$`)
	farewellPattern = regexp.MustCompile(`(?i)^` + filler + `(?:(?:goodbye|good bye|farewell|talk to you later|catch you later|see you later)\b.*|(?:bye|bye bye|see you|see ya|take care|good night)(?: now| then| for now)?)$`)
	greetingPattern = regexp.MustCompile(`(?i)^` + filler + `(?:(?:hi|hello|hey|hiya|howdy|greetings|good (?:morning|afternoon|evening|day))(?: there| all| everyone| team)?|how are you(?: doing)?(?: today)?|what can you do|how (?:can|could|may) you help(?: me)?)$`)
	emotionPattern  = regexp.MustCompile(`(?i)^` + filler + `(?:i am|i'm|im|i feel|i'm feeling|i am feeling|feeling)\s+(?:so |very |really |a bit |a little |kind of |quite )?(?:happy|glad|excited|great|good|wonderful|sad|angry|upset|frustrated|stressed|tired|depressed|annoyed|bored|lonely|anxious|worried|unhappy|okay|ok|fine|meh)\b.*$`)
	feelingPattern  = regexp.MustCompile(`(?i)\b(i am|i'm|im|i feel|i'm feeling|i am feeling|feeling)\s+(so |very |really |a bit |a little |kind of |quite )?(happy|glad|excited|great|good|wonderful|sad|angry|upset|frustrated|stressed|tired|depressed|annoyed|bored|lonely|anxious|worried|unhappy|okay|ok|fine|meh)\b`)
	positivePattern = regexp.MustCompile(`(?i)\b(happy|glad|excited|great|good|wonderful)\b`)
	negativePattern = regexp.MustCompile(`(?i)\b(sad|angry|upset|frustrated|stressed|tired|depressed|annoyed|bored|lonely|anxious|worried|unhappy)\b`)
	timeCuePattern  = regexp.MustCompile(`(?i)\bgood (morning|afternoon|evening)\b`)
)

func clauses(question string) []string {
	parts := clauseSplit.Split(question, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func anyClause(re *regexp.Regexp, parts []string) bool {
	for _, p := range parts {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// Classify maps a question to an intent. The question is split into
// clauses on , ; . ! and ?, and a clause is social when it opens with a
// cue. Any social clause wins over an informational reading, and among
// social cues the order is thanks, farewell, greeting, emotion.
func Classify(question string) Intent {
	parts := clauses(question)
	if len(parts) == 0 {
		return IntentInformational
	}
	switch {
	case anyClause(thanksPattern, parts):
		return IntentThanks
	case anyClause(farewellPattern, parts):
		return IntentFarewell
	case anyClause(greetingPattern, parts):
		return IntentGreeting
	case anyClause(emotionPattern, parts):
		return IntentEmotion
	}
	return IntentInformational
}

func classifyValence(question string) valence {
	match := feelingPattern.FindStringSubmatch(question)
	if len(match) < 4 {
		return valenceNeutral
	}
	word := match[3]
	switch {
	case negativePattern.MatchString(word):
		return valenceNegative
	case positivePattern.MatchString(word):
		return valencePositive
	}
	return valenceNeutral
}

func partOfDay(question string, now time.Time) string {
	if m := timeCuePattern.FindStringSubmatch(question); len(m) == 2 {
		return strings.ToLower(m[1])
	}
	switch h := now.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 18:
		return "afternoon"
	case h >= 18 && h < 22:
		return "evening"
	}
	return ""
}

// Respond renders the canned answer for a social intent. It returns an
// empty string for IntentInformational.
func Respond(intent Intent, question string, now time.Time) string {
	switch intent {
	case IntentGreeting:
		opening := "Hello!"
		if part := partOfDay(question, now); part != "" {
			opening = "Good " + part + "!"
		}
		return opening + " I can help you with questions about your inventory and your uploaded documents. What would you like to know?"
	case IntentFarewell:
		return "Goodbye! Feel free to come back anytime you have questions about your inventory or documents."
	case IntentThanks:
		return "You're welcome! Let me know if there is anything else about your inventory or documents I can help with."
	case IntentEmotion:
		switch classifyValence(question) {
		case valencePositive:
			return "That's wonderful to hear! If there's anything about your inventory or documents I can help with, just ask."
		case valenceNegative:
			return "I'm sorry you're feeling that way. I'm here for you, and if there's anything about your inventory or documents I can do, just let me know."
		}
		return "Thanks for sharing how you feel. Let me know if I can help with your inventory or documents."
	}
	return ""
}

// Triage couples the classifier with a clock.
type Triage struct {
	now func() time.Time
}

func New() *Triage {
	return &Triage{now: time.Now}
}

func NewWithClock(now func() time.Time) *Triage {
	return &Triage{now: now}
}

// Handle classifies the question and, for social intents, returns the
// canned response with ok set.
func (t *Triage) Handle(question string) (Intent, string, bool) {
	intent := Classify(question)
	if !intent.IsSocial() {
		return intent, "", false
	}
	return intent, Respond(intent, question, t.now()), true
}
