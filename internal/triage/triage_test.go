package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		question string
		want     Intent
	}{
		{"Good morning, how can you help?", IntentGreeting},
		{"Thank you!", IntentThanks},
		{"thanks a lot", IntentThanks},
		{"Hi, do you have apples?", IntentGreeting},
		{"Do you have apples?", IntentInformational},
		{"hello", IntentGreeting},
		{"Hey there", IntentGreeting},
		{"What can you do?", IntentGreeting},
		{"Goodbye", IntentFarewell},
		{"ok bye", IntentFarewell},
		{"Good night!", IntentFarewell},
		{"Thanks, bye!", IntentThanks},
		{"Hello, thank you for the help", IntentThanks},
		{"Hi, I am sad", IntentGreeting},
		{"I am angry", IntentEmotion},
		{"I feel happy today", IntentEmotion},
		{"I'm so frustrated with my stock", IntentEmotion},
		{"Which item is the hi-fi speaker?", IntentInformational},
		{"How many pages does the book by Tolkien have?", IntentInformational},
		{"Which products expire this month?", IntentInformational},
		{"Is the TY-100 router in stock?", IntentInformational},
		{"Do we still have Cheers cola?", IntentInformational},
		{"How many Take Care lotions are left?", IntentInformational},
		{"How are you tracking expiry dates for my milk?", IntentInformational},
		{"What does my uploaded doc say about Good Day biscuits?", IntentInformational},
		{"Hi I need the stock report", IntentInformational},
		{"How are you today?", IntentGreeting},
		{"Good day!", IntentGreeting},
		{"Cheers!", IntentThanks},
		{"ty", IntentThanks},
		{"Do we have milk? thanks", IntentThanks},
		{"take care now", IntentFarewell},
		{"", IntentInformational},
		{"   ", IntentInformational},
	}
	for _, tc := range cases {
		t.Run(tc.question, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.question))
		})
	}
}

func TestRespondGreetingTimeOfDay(t *testing.T) {
	evening := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)
	morning := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	night := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)

	require.Contains(t, Respond(IntentGreeting, "Good morning, how can you help?", evening), "Good morning!")
	require.Contains(t, Respond(IntentGreeting, "hi", morning), "Good morning!")
	require.Contains(t, Respond(IntentGreeting, "hi", evening), "Good evening!")
	require.Contains(t, Respond(IntentGreeting, "hi", night), "Hello!")
}

func TestRespondEmotionValence(t *testing.T) {
	now := time.Now()
	require.Contains(t, Respond(IntentEmotion, "I feel happy", now), "wonderful to hear")
	require.Contains(t, Respond(IntentEmotion, "I am really angry", now), "sorry you're feeling")
	require.Contains(t, Respond(IntentEmotion, "I'm fine", now), "Thanks for sharing")
}

func TestRespondDeterministic(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	for _, intent := range []Intent{IntentGreeting, IntentFarewell, IntentThanks, IntentEmotion} {
		require.NotEmpty(t, Respond(intent, "x", now))
		require.Equal(t, Respond(intent, "x", now), Respond(intent, "x", now))
	}
	require.Empty(t, Respond(IntentInformational, "Do you have apples?", now))
}

func TestTriageHandle(t *testing.T) {
	tr := NewWithClock(func() time.Time { return time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC) })

	intent, resp, ok := tr.Handle("Thank you!")
	require.True(t, ok)
	require.Equal(t, IntentThanks, intent)
	require.Contains(t, resp, "You're welcome")

	intent, resp, ok = tr.Handle("hello")
	require.True(t, ok)
	require.Equal(t, IntentGreeting, intent)
	require.Contains(t, resp, "Good afternoon!")

	intent, resp, ok = tr.Handle("Do you have apples?")
	require.False(t, ok)
	require.Equal(t, IntentInformational, intent)
	require.Empty(t, resp)
}
