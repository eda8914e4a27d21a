package service

import (
	"regexp"
	"sort"
	"strings"
)

// Stop words filtered out of tag candidates: Korean particles, question
// endings and generic verbs, plus English function words.
var koStop = newStringSet(
	"은", "는", "이", "가", "을", "를", "과", "와", "의", "에", "에서", "으로", "및", "또는", "그리고", "이나", "나",
	"무엇", "무엇인가요", "어떻게", "왜", "어떤", "경우", "방법", "전략", "기법", "방안", "고려", "사용", "사용하며",
	"사용하시겠습니까", "설명", "설명해", "주세요", "논의", "해결", "제공", "구현", "개선", "위해", "위한", "때", "중",
	"장단점", "선택", "기준", "맞추기", "균형", "가능", "가능한", "정의", "예시", "예를", "들어", "대해",
	"발생", "발생할", "발생할수", "과정", "과정에서", "있는지", "있으며", "어떻게든", "어떤가요",
	"등", "등의", "또한", "대한", "기반", "관련", "관련된", "수", "수준",
	"사용하여", "사용하고", "선정", "필요", "필요한", "필수", "하면", "하며", "하기",
)

var enStop = newStringSet(
	"the", "a", "an", "to", "of", "for", "in", "on", "at", "and", "or", "with", "by", "is", "are",
	"be", "as", "what", "which", "how", "why", "please", "explain", "using", "use", "select", "choose", "when",
)

// Domain dictionaries for question tagging.
var (
	tagHeads = newStringSet("메모리", "성능", "네트워크", "데이터", "에러", "오류", "예외", "이미지", "캐시", "동시성", "CPU", "요청")
	tagTails = newStringSet("누수", "관리", "최적화", "요청", "일관성", "핸들링", "로딩", "무효화", "지연", "재시도", "백오프", "사용", "제어", "저하")
	tagMods  = newStringSet("비동기", "동시성", "병렬", "백그라운드")
)

// roleHints boost role-relevant terminology during scoring.
var roleHints = map[string][]string{
	"iOS":      {"iOS", "Swift", "SwiftUI", "UIKit", "Combine", "GCD", "OperationQueue", "Instruments", "ARC", "Leaks", "메모리", "동시성", "성능", "QoS"},
	"Android":  {"Android", "Kotlin", "Coroutine", "Flow", "Compose", "WorkManager", "Paging", "메모리", "성능"},
	"Frontend": {"React", "Next.js", "SSR", "CSR", "WebVitals", "Accessibility", "Performance", "Cache", "접근성"},
	"Backend":  {"Spring", "Node", "Nest", "DB", "SQL", "NoSQL", "Redis", "Kafka", "CQRS", "샤딩", "트랜잭션", "지연", "캐시", "스케일링"},
	"Data":     {"Python", "Pandas", "Spark", "Feature", "모델", "정규화", "AUC", "Recall", "Precision", "F1", "특징공학", "모델링", "평가", "리콜", "정밀도"},
}

// Core tokens and phrases for JD scoring.
var jdCoreTokens = newStringSet(
	"메모리", "누수", "성능", "최적화", "지연", "지속", "네트워크", "요청", "응답", "데이터", "일관성", "무결성",
	"에러", "오류", "예외", "재시도", "백오프", "캐시", "동시성", "스레드", "큐", "스케줄링", "보안", "인증", "권한",
	"CPU", "IO", "Latency", "Throughput",
)

var jdCorePhrases = []string{
	"메모리 누수", "성능 최적화", "네트워크 요청", "데이터 일관성", "에러 핸들링",
	"이미지 로딩", "캐시 무효화", "동시성 제어", "백오프 재시도",
}

// genericTails are phrase endings too generic to make a useful tag.
var genericTails = newStringSet("방법", "전략", "기법", "고려", "사용", "구현", "제공", "개선", "무엇", "있는지", "있음", "가능")

const (
	defaultTagTopK = 3
	defaultJDTopK  = 12
	maxTagLen      = 22
	maxJDPhraseLen = 24
)

var (
	nonWordRe     = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	urlRe         = regexp.MustCompile(`https?://\S+`)
	numberRe      = regexp.MustCompile(`\d+(\.\d+)?%?`)
	digitsOnlyRe  = regexp.MustCompile(`^\d+$`)
	techAcronymRe = regexp.MustCompile(`[A-Z]{2,}`)
	camelCaseRe   = regexp.MustCompile(`[a-z]+[A-Z][a-z]+`)
	koSuffixRe    = regexp.MustCompile(`(하기|하는|하면|하며|해야|해요|하기위해)$`)
	koEndingRe    = regexp.MustCompile(`(인가요|입니까|인가)$`)
	koLeadPartRe  = regexp.MustCompile(`^(을|를|이|가|은|는)`)
	koTailPartRe  = regexp.MustCompile(`(을|를|이|가|은|는)$`)
	iosMentionRe  = regexp.MustCompile(`\biOS\b`)
	androidRe     = regexp.MustCompile(`(?i)\bAndroid\b`)
)

// TagSettings carries the session context that biases tag scoring.
type TagSettings struct {
	Role       string
	JDKeywords []string
}

// KeywordService is the heuristic lexical scorer used for question tags and
// JD keyword fallback. It is deterministic: identical input and dictionaries
// always produce the same ordered output.
type KeywordService interface {
	ExtractTags(question string, settings TagSettings, topK int) []string
	ExtractKeywords(jdText, role string, topK int) []string
}

type keywordService struct{}

func NewKeywordService() KeywordService {
	return &keywordService{}
}

func newStringSet(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func isStopWord(t string) bool {
	if _, ok := enStop[strings.ToLower(t)]; ok {
		return true
	}
	_, ok := koStop[t]
	return ok
}

// canonPhrase folds known synonyms so duplicates collapse to one tag.
func canonPhrase(s string) string {
	s = strings.ReplaceAll(s, "오류", "에러")
	s = strings.ReplaceAll(s, "캐싱", "캐시")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeToken strips punctuation, Korean verb suffixes and particles.
func normalizeToken(t string) string {
	t = nonWordRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(strings.Join(strings.Fields(t), " "))
	t = koSuffixRe.ReplaceAllString(t, "")
	t = koEndingRe.ReplaceAllString(t, "")
	t = koLeadPartRe.ReplaceAllString(t, "")
	t = koTailPartRe.ReplaceAllString(t, "")
	return t
}

func tokenize(s string) []string {
	return strings.Fields(nonWordRe.ReplaceAllString(s, " "))
}

// candidateSet accumulates additive scores per phrase.
type candidateSet map[string]float64

func (c candidateSet) sortedPhrases() []string {
	phrases := make([]string, 0, len(c))
	for p, s := range c {
		if s > 0 {
			phrases = append(phrases, p)
		}
	}
	// Score descending, phrase ascending as tie-break so output order is
	// reproducible across runs.
	sort.Slice(phrases, func(i, j int) bool {
		if c[phrases[i]] != c[phrases[j]] {
			return c[phrases[i]] > c[phrases[j]]
		}
		return phrases[i] < phrases[j]
	})
	return phrases
}

func (s *keywordService) ExtractTags(question string, settings TagSettings, topK int) []string {
	if topK <= 0 {
		topK = defaultTagTopK
	}

	raw := tokenize(question)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if nt := normalizeToken(t); nt != "" {
			tokens = append(tokens, nt)
		}
	}

	cand := candidateSet{}
	add := func(phrase string, base float64) {
		t := canonPhrase(phrase)
		if len([]rune(t)) < 2 {
			return
		}
		parts := strings.Fields(t)
		allStop := true
		for _, p := range parts {
			if !isStopWord(p) {
				allStop = false
				break
			}
		}
		if allStop {
			return
		}

		score := base
		// Longer n-grams carry more signal than unigrams.
		if len(parts) == 2 {
			score += 0.8
		}
		if len(parts) >= 3 {
			score += 1.1
		}
		// Tech acronyms and camel-case identifiers (GCD, OperationQueue).
		if techAcronymRe.MatchString(t) || camelCaseRe.MatchString(t) {
			score += 0.6
		}
		cand[t] += score
	}

	inSet := func(set map[string]struct{}, t string) bool {
		_, ok := set[t]
		return ok
	}

	// Trigrams: modifier + head + tail patterns.
	for i := 0; i+2 < len(tokens); i++ {
		a, b, c := tokens[i], tokens[i+1], tokens[i+2]
		if isStopWord(a) || isStopWord(b) || isStopWord(c) {
			continue
		}
		if inSet(tagMods, a) && inSet(tagHeads, b) && inSet(tagTails, c) {
			add(a+" "+b+" "+c, 2.2)
		}
		if inSet(tagHeads, a) && inSet(tagMods, b) && inSet(tagTails, c) {
			add(a+" "+b+" "+c, 1.8)
		}
	}

	// Bigrams: head+tail, head+head, mod+head.
	for i := 0; i+1 < len(tokens); i++ {
		a, b := tokens[i], tokens[i+1]
		if isStopWord(a) || isStopWord(b) {
			continue
		}
		if inSet(tagHeads, a) && inSet(tagTails, b) {
			add(a+" "+b, 2.0)
		}
		if inSet(tagHeads, a) && inSet(tagHeads, b) {
			add(a+" "+b, 1.6)
		}
		if inSet(tagMods, a) && inSet(tagHeads, b) {
			add(a+" "+b, 1.4)
		}
	}

	// Unigrams from the domain dictionaries only.
	for _, t := range tokens {
		if isStopWord(t) {
			continue
		}
		if inSet(tagHeads, t) || inSet(tagTails, t) || inSet(tagMods, t) {
			add(t, 0.6)
		}
	}

	// JD keyword and role hint boosts.
	jdLower := make([]string, 0, len(settings.JDKeywords))
	for _, k := range settings.JDKeywords {
		jdLower = append(jdLower, strings.ToLower(k))
	}
	hints := roleHints[settings.Role]
	for phrase := range cand {
		lower := strings.ToLower(phrase)
		for _, j := range jdLower {
			if j != "" && strings.Contains(lower, j) {
				cand[phrase] += 1.0
				break
			}
		}
		for _, h := range hints {
			if strings.Contains(lower, strings.ToLower(h)) {
				cand[phrase] += 0.4
				break
			}
		}
	}

	var out []string
	seen := map[string]struct{}{}
	for _, phrase := range cand.sortedPhrases() {
		if len([]rune(phrase)) > maxTagLen {
			continue
		}
		parts := strings.Fields(phrase)
		if _, generic := genericTails[parts[len(parts)-1]]; generic {
			continue
		}
		key := strings.ToLower(canonPhrase(phrase))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, phrase)
		if len(out) >= topK {
			break
		}
	}

	// Platform fallback when scoring leaves gaps.
	if len(out) < topK {
		if iosMentionRe.MatchString(question) && !containsString(out, "iOS") {
			out = append(out, "iOS")
		}
		if androidRe.MatchString(question) && !containsString(out, "Android") {
			out = append(out, "Android")
		}
	}

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func (s *keywordService) ExtractKeywords(jdText, role string, topK int) []string {
	if jdText == "" {
		return nil
	}
	if topK <= 0 {
		topK = defaultJDTopK
	}

	cleaned := urlRe.ReplaceAllString(jdText, " ")
	cleaned = nonWordRe.ReplaceAllString(cleaned, " ")
	cleaned = numberRe.ReplaceAllString(cleaned, " ")
	tokens := strings.Fields(cleaned)

	hints := roleHints[role]
	cand := candidateSet{}
	add := func(phrase string, base float64) {
		p := strings.TrimSpace(phrase)
		if len([]rune(p)) < 2 || digitsOnlyRe.MatchString(p) {
			return
		}
		parts := strings.Fields(p)
		allStop := true
		for _, x := range parts {
			if !isStopWord(x) {
				allStop = false
				break
			}
		}
		if allStop || isStopWord(p) {
			return
		}

		score := base
		lower := strings.ToLower(p)
		if len(parts) == 2 {
			score += 0.6
		}
		if len(parts) >= 3 {
			score += 0.8
		}
		for _, c := range jdCorePhrases {
			if strings.Contains(lower, strings.ToLower(c)) {
				score += 1.2
				break
			}
		}
		for _, x := range parts {
			if _, core := jdCoreTokens[x]; core {
				score += 0.5
			}
		}
		for _, h := range hints {
			if strings.Contains(lower, strings.ToLower(h)) {
				score += 0.6
				break
			}
		}
		cand[p] += score
	}

	for _, t := range tokens {
		if !isStopWord(t) {
			add(t, 0.8)
		}
	}
	for i := range tokens {
		if i+1 < len(tokens) && !isStopWord(tokens[i]) && !isStopWord(tokens[i+1]) {
			add(tokens[i]+" "+tokens[i+1], 1.2)
			if i+2 < len(tokens) && !isStopWord(tokens[i+2]) {
				add(tokens[i]+" "+tokens[i+1]+" "+tokens[i+2], 1.4)
			}
		}
	}

	var out []string
	seen := map[string]struct{}{}
	for _, phrase := range cand.sortedPhrases() {
		if len([]rune(phrase)) > maxJDPhraseLen {
			continue
		}
		if _, generic := genericTails[phrase]; generic {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(phrase, "오류", "에러"))
		key = strings.Join(strings.Fields(key), " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, phrase)
		if len(out) >= topK {
			break
		}
	}
	return out
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
