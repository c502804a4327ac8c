package app

import (
	"fmt"
	"strings"

	"prayday_bot/internal/domain/member"
)

const (
	shareContactButton = "Share my phone number"

	textStart = "Hello from PrayDay! Please click the <b>Share my phone number</b> button below to register."

	textUnrecognized = "Sorry, I don't recognize your phone number."

	textSetTimePrompt   = "At what time each day would you like to receive the prayer reminder?"
	textSetNumberPrompt = "How many members would you like to pray for each day?"

	textNotSubscribed = "You're currently not subscribed to receive daily prayer reminders. To subscribe, use the /subscribe command."

	textUnsubscribed = "Sad to see you go! You'll no longer be receiving daily prayer reminders. To re-subscribe, use the /subscribe command."
)

var affirmations = []string{"Awesome!", "Sounds great!", "Wonderful!", "Right on!", "Great choice!"}

func contactReplyText(status member.Status, firstName string) string {
	switch status {
	case member.StatusSubscribed:
		return fmt.Sprintf("Hi %s! It looks like you've already subscribed, welcome back! To see your current settings, use the /settings command. To unsubscribe, use the /unsubscribe command.", firstName)
	case member.StatusUnsubscribed:
		return fmt.Sprintf("Hi %s! It looks like you haven't subscribed yet. To subscribe, use the /subscribe command.", firstName)
	default:
		return textUnrecognized
	}
}

func subscribedText(affirmation string) string {
	return affirmation + " You'll now start receiving daily prayer reminders. To see your current settings, use the /settings command. To unsubscribe, use the /unsubscribe command."
}

func reminderTimeSetText(affirmation string, t member.ReminderTime) string {
	return fmt.Sprintf("%s From now on, you'll be receiving the prayer reminder at %s each day.", affirmation, t)
}

func memberCountSetText(affirmation string, n int) string {
	return fmt.Sprintf("%s From now on, you'll be receiving %d %s each day.", affirmation, n, pluralMembers(n))
}

func settingsText(n int, t member.ReminderTime) string {
	return fmt.Sprintf("You're currently subscribed to receive daily prayer reminders for %d %s at %s each day. To change these settings, use the /setnumber or /settime commands.", n, pluralMembers(n), t)
}

func pluralMembers(n int) string {
	if n == 1 {
		return "member"
	}
	return "members"
}

func helpText(commands []Command) string {
	var b strings.Builder
	b.WriteString("Share your phone number with /start to register, then use:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "\n%s - %s", c.Name, c.Description)
	}
	return b.String()
}
