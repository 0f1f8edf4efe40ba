package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

func phrasesPrompt(topic, industry string, roles []string, lang Language) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a list of %d short, cliché, funny, or typical phrases (max 6-8 words each) that someone might say during a meeting about %q.", PhraseCount, topic)
	if industry != "" {
		fmt.Fprintf(&b, " The industry is %q.", industry)
	}
	if len(roles) > 0 {
		fmt.Fprintf(&b, " The participants include: %s. Include specific jargon or catchphrases these specific personas would use.", strings.Join(roles, ", "))
	}
	b.WriteString(" The phrases should be distinct and suitable for a Bingo game card.")
	writeLanguage(&b, lang)
	b.WriteString(" Return ONLY a JSON array of strings.")

	return b.String()
}

func rolesPrompt(topic, industry string, lang Language) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Given a meeting about %q", topic)
	if industry != "" {
		fmt.Fprintf(&b, " in the %q industry", industry)
	}
	b.WriteString(`, list 8 stereotypical or common participant roles/personas (e.g. "Skeptical Developer", "Budget-conscious Manager", "Over-enthusiastic Sales").`)
	writeLanguage(&b, lang)
	b.WriteString(" Return ONLY a JSON array of strings.")

	return b.String()
}

func analysisPrompt(topic string, winningPhrases []string, elapsed time.Duration, lang Language) string {
	phrases, _ := json.Marshal(winningPhrases)

	var b strings.Builder
	fmt.Fprintf(&b, "A user just won \"Meeting Bingo\" during a meeting about %q.\n", topic)
	fmt.Fprintf(&b, "It took them %d seconds.\n", int64(elapsed/time.Second))
	fmt.Fprintf(&b, "The winning phrases they heard were: %s.\n\n", phrases)
	b.WriteString(`1. Calculate a "Boredom Score" from 0 to 100 based on how cliché and corporate the phrases are and how quickly they won (faster win = more predictable/boring).
2. Write a short, snarky, funny commentary (max 2 sentences) roasting the meeting based on these specific phrases.`)
	writeLanguage(&b, lang)
	b.WriteString("\n\nReturn JSON: { \"boredomScore\": number, \"commentary\": string }")

	return b.String()
}

func writeLanguage(b *strings.Builder, lang Language) {
	if lang == "" || lang == English {
		return
	}
	fmt.Fprintf(b, " Write the text in %s.", lang.EnglishName())
}
