package main

import (
	"context"
	neturl "net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_application_chat(t *testing.T) {
	t.Parallel()
	stub := newInferenceStub(t)
	stub.speak(t, "Evening. Is the music really that loud over there?")
	server := startTestServer(t, map[string]string{"SOTOPIA_INFERENCE_URL": stub.URL()})
	client := server.Client()
	ctx := context.Background()

	doc, err := client.SubmitForm(ctx, "/", "/chat", neturl.Values{
		"message": {"Could you turn the music down? I have an early hike."},
	})
	require.NoError(t, err)

	userTurns := doc.Find(".transcript li.user")
	require.Equal(t, 1, userTurns.Length())
	assert.Contains(t, userTurns.Text(), "Benjamin Brooks:")
	assert.Contains(t, userTurns.Text(), "early hike")
	botTurns := doc.Find(".transcript li.bot")
	require.Equal(t, 1, botTurns.Length())
	assert.Contains(t, botTurns.Text(), "Hana Kobayashi:")
	assert.Contains(t, botTurns.Text(), "Is the music really that loud")

	// The prompt conditions the model on its character and numbers the turns.
	promptText := stub.prompt()
	assert.Contains(t, promptText, "Imagine you are Hana Kobayashi")
	assert.Contains(t, promptText,
		`Turn #0: Benjamin Brooks said: "Could you turn the music down? I have an early hike."`)
	assert.Contains(t, promptText, "You are at Turn #1.")

	// Retry regenerates only the newest reply.
	stub.speak(t, "Sorry, I lost track of time. Turning it off now.")
	doc, err = client.SubmitFormWithDoc(ctx, doc, "/chat/retry", nil)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find(".transcript li.user").Length())
	botTurns = doc.Find(".transcript li.bot")
	require.Equal(t, 1, botTurns.Length())
	assert.Contains(t, botTurns.Text(), "Turning it off now")
	assert.NotContains(t, botTurns.Text(), "Is the music really that loud")
	// The discarded reply is not part of the retry prompt either.
	assert.Contains(t, stub.prompt(), "You are at Turn #1.")

	// The next exchange builds on the kept history.
	stub.speak(t, "Deal. Enjoy the hike tomorrow.")
	doc, err = client.SubmitFormWithDoc(ctx, doc, "/chat", neturl.Values{
		"message": {"Thanks, I appreciate it."},
	})
	require.NoError(t, err)
	require.Equal(t, 2, doc.Find(".transcript li.user").Length())
	promptText = stub.prompt()
	assert.Contains(t, promptText, `Turn #1: Hana Kobayashi said: "Sorry, I lost track of time. Turning it off now."`)
	assert.Contains(t, promptText, `Turn #2: Benjamin Brooks said: "Thanks, I appreciate it."`)
	assert.Contains(t, promptText, "You are at Turn #3.")

	// Undo deletes the newest exchange.
	doc, err = client.SubmitFormWithDoc(ctx, doc, "/chat/undo", nil)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find(".transcript li.user").Length())
	assert.Contains(t, doc.Find(".transcript li.user").Text(), "early hike")

	// Clear wipes the conversation and its action buttons.
	doc, err = client.SubmitFormWithDoc(ctx, doc, "/chat/clear", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find(".transcript li").Length())
	assert.Equal(t, 0, doc.Find("form[action='/chat/retry']").Length())
}

func Test_application_chat_actionReplies(t *testing.T) {
	t.Parallel()
	stub := newInferenceStub(t)
	stub.respond(`{"action_type": "non-verbal communication", "argument": "waves from the other pitch"}`)
	server := startTestServer(t, map[string]string{"SOTOPIA_INFERENCE_URL": stub.URL()})
	client := server.Client()
	ctx := context.Background()

	doc, err := client.SubmitForm(ctx, "/", "/chat", neturl.Values{"message": {"Hello over there!"}})
	require.NoError(t, err)
	assert.Contains(t, doc.Find(".transcript li.bot").Text(),
		"[non-verbal communication] waves from the other pitch")

	// A leave action ends the conversation.
	stub.respond(`{"action_type": "leave", "argument": ""}`)
	doc, err = client.SubmitFormWithDoc(ctx, doc, "/chat", neturl.Values{"message": {"Are you heading out?"}})
	require.NoError(t, err)
	assert.Contains(t, doc.Find(".transcript li.bot").Text(), "(The conversation has ended.)")
}

func Test_application_chat_malformedOutput(t *testing.T) {
	t.Parallel()
	stub := newInferenceStub(t)
	stub.respond("The camper ponders silently without answering.")
	server := startTestServer(t, map[string]string{"SOTOPIA_INFERENCE_URL": stub.URL()})
	client := server.Client()
	ctx := context.Background()

	// Output without a parseable action becomes the placeholder reply. The
	// turn still happened and is persisted.
	doc, err := client.SubmitForm(ctx, "/", "/chat", neturl.Values{"message": {"Hello?"}})
	require.NoError(t, err)
	assert.Contains(t, doc.Find(".transcript li.bot").Text(), "could not be understood")

	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find(".transcript li.user").Length())
	assert.Contains(t, doc.Find(".transcript li.bot").Text(), "could not be understood")
}

func Test_application_chat_inferenceFailure(t *testing.T) {
	t.Parallel()
	stub := newInferenceStub(t)
	stub.fail(true)
	server := startTestServer(t, map[string]string{"SOTOPIA_INFERENCE_URL": stub.URL()})
	client := server.Client()
	ctx := context.Background()

	// A failed inference call shows a banner and leaves the transcript as it
	// was, so nothing is lost by trying again.
	doc, err := client.SubmitForm(ctx, "/", "/chat", neturl.Values{"message": {"Anyone there?"}})
	require.NoError(t, err)
	assert.Contains(t, doc.Find(".error").Text(), "The model could not be reached.")
	assert.Equal(t, 0, doc.Find(".transcript li").Length())

	// The banner does not outlive the next page load.
	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find(".error").Length())

	stub.fail(false)
	stub.speak(t, "Yes, still up. What can I do for you?")
	doc, err = client.SubmitFormWithDoc(ctx, doc, "/chat", neturl.Values{"message": {"Anyone there?"}})
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find(".error").Length())
	require.Equal(t, 1, doc.Find(".transcript li.user").Length())
	assert.Contains(t, doc.Find(".transcript li.bot").Text(), "What can I do for you?")
}

func Test_application_chat_rejectsInvalidSubmissions(t *testing.T) {
	t.Parallel()
	stub := newInferenceStub(t)
	server := startTestServer(t, map[string]string{"SOTOPIA_INFERENCE_URL": stub.URL()})
	client := server.Client()
	ctx := context.Background()

	// An empty message is rejected.
	_, err := client.SubmitForm(ctx, "/", "/chat", neturl.Values{"message": {"   "}})
	require.ErrorContains(t, err, "unexpected status code")

	// So is a tampered participant pair: Naomi is nobody's stranger.
	_, err = client.SubmitForm(ctx, "/", "/chat", neturl.Values{
		"message":   {"Hello!"},
		"bot_agent": {"naomi_fortune"},
	})
	require.ErrorContains(t, err, "unexpected status code")
}
