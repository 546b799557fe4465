package pipeline

import (
	"strings"
	"unicode/utf8"
)

// termOf returns the normalized content term for a word, or "" when the
// word is a stopword, a single rune, or has no word runes.
func termOf(word string) string {
	start, end := coreBounds(word)
	if start == end {
		return ""
	}
	t := strings.ToLower(word[start:end])
	if utf8.RuneCountInString(t) < 2 {
		return ""
	}
	if _, ok := stopwords[t]; ok {
		return ""
	}
	return t
}

// wordKey normalizes a word for boundary comparison. Unlike termOf it keeps
// stopwords.
func wordKey(word string) string {
	start, end := coreBounds(word)
	return strings.ToLower(word[start:end])
}

// termsOf returns the content terms of text in order of appearance,
// repeats included.
func termsOf(text string) []string {
	var terms []string
	for _, w := range strings.Fields(text) {
		if t := termOf(w); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// hasCue reports whether text contains a lecture cue phrase in either
// language.
func hasCue(text string) bool {
	lower := strings.ToLower(text)
	for _, c := range cuePhrases {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// Scripts do not overlap, so one set serves Bangla, English and code-mixed
// text alike.
var stopwords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, list := range [][]string{englishStopwords, banglaStopwords} {
		for _, w := range list {
			m[w] = struct{}{}
		}
	}
	return m
}()

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "all", "also", "am", "an", "and", "any", "are", "as", "at",
	"be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during", "each", "few", "for", "from", "further",
	"had", "has", "have", "having", "he", "her", "here", "hers", "him", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just", "let", "like", "me", "more", "most", "my",
	"no", "nor", "not", "now", "of", "off", "okay", "ok", "on", "once", "one", "only", "or", "other", "our", "out", "over", "own",
	"really", "right", "same", "say", "she", "should", "so", "some", "such",
	"than", "that", "the", "their", "them", "then", "there", "these", "they", "thing", "things", "this", "those", "through", "to", "too",
	"um", "uh", "under", "until", "up", "us", "very", "was", "we", "well", "were", "what", "when", "where", "which", "while", "who", "why", "will", "with", "would",
	"yes", "you", "your", "yeah",
	"today", "going", "gonna", "see", "look", "know", "get", "got", "want", "need", "make", "way", "lot",
}

var banglaStopwords = []string{
	"এবং", "ও", "আর", "কিন্তু", "তবে", "অথবা", "বা", "যে", "যা", "যার", "যদি", "তাহলে", "তাই", "সুতরাং",
	"এই", "সেই", "ওই", "এটা", "এটি", "সেটা", "সেটি", "ওটা", "এখানে", "সেখানে", "এখন", "তখন",
	"একটা", "একটি", "এক", "কোন", "কোনো", "কি", "কী", "কেন", "কেমন", "কিভাবে", "কীভাবে",
	"আমি", "আমরা", "আমার", "আমাদের", "তুমি", "তোমরা", "তোমার", "আপনি", "আপনার", "আপনারা",
	"সে", "তারা", "তার", "তাদের", "তিনি", "তাঁর", "উনি", "এরা", "ওরা",
	"না", "নেই", "নয়", "হ্যাঁ", "আছে", "ছিল", "হয়", "হবে", "হয়ে", "হলো", "হল", "হচ্ছে", "হতে",
	"করে", "করা", "করব", "করবো", "করতে", "করেছি", "করি", "করো", "করেন", "দিয়ে", "নিয়ে",
	"থেকে", "জন্য", "মধ্যে", "পরে", "আগে", "সাথে", "সঙ্গে", "দিকে", "উপর", "নিচে",
	"খুব", "অনেক", "সব", "সবাই", "আরও", "আরো", "শুধু", "মাত্র", "ঠিক", "আচ্ছা", "তো", "যেমন",
	"আজ", "আজকে", "এর", "ওর", "টা", "টি", "গুলো", "গুলি",
}

var cuePhrases = []string{
	"in summary", "to summarize", "in conclusion", "to conclude", "the main idea", "the key point",
	"key idea", "important", "remember", "note that", "keep in mind", "is defined as", "definition",
	"crucial", "essential", "for the exam", "the takeaway", "in other words",
	"সংক্ষেপে", "সারসংক্ষেপ", "মনে রাখবে", "মনে রাখবেন", "মনে রাখতে হবে", "গুরুত্বপূর্ণ",
	"মূল কথা", "মূল বিষয়", "মূল ধারণা", "সংজ্ঞা", "অর্থাৎ", "পরীক্ষায়", "লক্ষ্য করো", "লক্ষ করো",
	"শেষ কথা", "সারকথা",
}
