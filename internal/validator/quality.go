package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
)

var (
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	overrideRe = regexp.MustCompile(`\{[^}]*\}`)
	digitsRe   = regexp.MustCompile(`^\d+$`)
)

// portugueseWords is the positive word list for scoring pt-BR output.
var portugueseWords = buildWordSet(
	"que", "não", "uma", "com", "para", "você", "ele", "ela", "isso", "mais",
	"muito", "bem", "aqui", "onde", "quando", "como", "por", "mas", "então",
	"agora", "ainda", "já", "só", "também", "até", "depois", "antes", "sobre",
	"é", "são", "foi", "foram", "ser", "está", "estão", "estou", "estamos",
	"tem", "tenho", "temos", "tinha", "vou", "vai", "vamos",
	"fiz", "fez", "fizemos", "fazer", "faço", "faz", "fazem", "feito",
	"pode", "podem", "posso", "puder", "poderia", "poder", "pude", "possa",
	"devo", "deve", "devem", "devemos", "dever", "devia", "deviam",
	"preciso", "precisa", "precisam", "precisamos", "precisar",
	"quero", "quer", "querem", "queremos", "querer", "quis", "quisemos",
	"penso", "pensa", "pensam", "pensamos", "pensar", "pensava", "pensavam",
	"digo", "diz", "dizem", "dizemos", "dizer", "disse", "dissemos",
	"vejo", "vê", "veem", "vemos", "ver", "vi", "vimos", "via", "viam",
	"dado", "dada", "dados", "dadas", "dar", "dou", "da", "dão",
	"meu", "minha", "meus", "minhas", "nosso", "nossa", "nossos", "nossas",
	"seu", "sua", "seus", "suas", "dele", "dela", "deles", "delas",
	"isto", "aquilo", "este", "esse", "aquele", "esta", "essa", "aquela",
	"estes", "esses", "aqueles", "estas", "essas", "aquelas",
	"bom", "boa", "bons", "boas", "ruim", "ruins", "grande", "pequeno",
	"novo", "velho", "alto", "baixo", "longo", "curto", "forte", "fraco",
	"rápido", "lento", "fácil", "difícil", "bonito", "feio", "real", "falso",
	"certo", "errado", "claro", "escuro", "quente", "frio", "seco", "molhado",
	"homem", "mulher", "pessoa", "filho", "filha", "pai", "mãe", "avó", "avô",
	"amigo", "amiga", "família", "casa", "tempo", "dia", "noite", "hora",
	"mundo", "vida", "morte", "amor", "ódio", "medo", "esperança", "verdade",
	"mentira", "coisa", "lugar", "maneira", "forma", "tipo", "jeito", "modo",
	"corpo", "cabeça", "coração", "mão", "pé", "olho", "boca", "ouvido",
	"palavra", "frase", "pergunta", "resposta", "história", "livro", "filme",
	"escola", "trabalho", "manhã", "tarde", "semana", "ano", "mês",
	"número", "cor", "som", "nome", "idade", "peso", "altura", "distância",
	"em", "ao", "a", "de", "do", "dos", "das", "e", "ou", "nem",
	"se", "sem", "sob", "entre", "durante", "dentro", "fora", "junto",
	"contra", "através", "conforme", "segundo", "perante", "salvo", "exceto",
	"pouco", "bastante", "demais", "menos", "tão", "quão",
	"sim", "talvez", "certamente", "provavelmente", "sempre", "nunca",
	"frequentemente", "raramente", "ali", "lá", "cá", "acolá",
	"hoje", "ontem", "amanhã", "cedo", "devagar",
	"um", "dois", "duas", "três", "quatro", "cinco", "seis",
	"sete", "oito", "nove", "dez", "onze", "doze", "treze", "vinte",
	"trinta", "quarenta", "cinquenta", "cem", "mil", "milhão",
	"há", "havia", "haverá", "haveria", "havendo", "houve",
	"seja", "sejas", "sejamos", "sejam", "fosse", "fosses", "fôssemos",
	"nada", "tudo", "algo", "alguém", "ninguém", "outro", "mesmo", "próprio",
	"único", "último", "primeiro", "próximo", "anterior", "posterior",
)

// englishWords are the negative signal: common English words that
// should not survive into a Portuguese subtitle.
var englishWords = buildWordSet(
	"the", "and", "you", "that", "was", "for", "are", "with", "his", "they",
	"have", "this", "will", "your", "from", "can", "said", "each", "which",
	"about", "would", "there", "their", "what", "when", "make", "like", "just",
	"time", "know", "take", "people", "year", "work", "back", "call", "hand",
	"high", "keep", "last", "long", "need", "part", "right", "seem",
	"tell", "think", "turn", "want", "way", "week", "well",
)

func buildWordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var contentArtifacts = []string{
	"translation:", "tradução:", "note:", "nota:",
	"[translation]", "[tradução]", "here is", "aqui está",
	"the translation is", "a tradução é",
}

// ValidateContent judges a whole translated subtitle body: enough text,
// and looking like Portuguese by detection, word lists, or both.
func ValidateContent(content string) (bool, string) {
	if len(strings.TrimSpace(content)) < 20 {
		return false, "content too short"
	}

	textLines := extractTextLines(content)
	if len(textLines) < 1 {
		return false, "too few subtitle lines"
	}
	fullText := strings.Join(textLines, " ")

	useful := 0
	for _, r := range fullText {
		if isLetter(r) {
			useful++
		}
	}
	if useful < 10 {
		return false, fmt.Sprintf("too few useful characters: %d", useful)
	}

	detected := detectLanguage(fullText)
	if detected == "pt" {
		return true, "quality validation passed"
	}

	words := wordRe.FindAllString(strings.ToLower(fullText), -1)
	if len(words) < 5 {
		return false, "too few words"
	}

	score := portugueseScore(fullText, words)
	if score >= 0.20 {
		return true, "quality validation passed"
	}
	if (detected == "pt" || detected == "es") && score >= 0.10 {
		return true, "quality validation passed"
	}

	lower := strings.ToLower(fullText)
	for _, artifact := range contentArtifacts {
		if strings.Contains(lower, artifact) {
			return false, "contains translation artifacts"
		}
	}

	return false, fmt.Sprintf("quality validation failed: portuguese score %.2f, detected language %s", score, detected)
}

// ValidateTranslation compares the original and translated bodies:
// roughly the same number of lines, and enough of them actually
// changed.
func ValidateTranslation(original, translated string) (bool, string) {
	if strings.TrimSpace(original) == "" || strings.TrimSpace(translated) == "" {
		return false, "empty content"
	}

	origLines := extractTextLines(original)
	transLines := extractTextLines(translated)

	diff := len(origLines) - len(transLines)
	if diff < 0 {
		diff = -diff
	}
	maxAllowed := len(origLines) / 10
	if maxAllowed < 5 {
		maxAllowed = 5
	}
	if diff > maxAllowed {
		return false, fmt.Sprintf("line count mismatch: %d vs %d", len(origLines), len(transLines))
	}
	if len(origLines) == 0 {
		return false, "no lines to validate"
	}

	minLines := len(origLines)
	if len(transLines) < minLines {
		minLines = len(transLines)
	}
	changed, unchanged := 0, 0
	for i := 0; i < minLines; i++ {
		orig := strings.TrimSpace(origLines[i])
		trans := strings.TrimSpace(transLines[i])
		if orig != trans && trans != "" {
			changed++
		} else if orig == trans {
			unchanged++
		}
	}

	if float64(unchanged)/float64(minLines) > 0.7 {
		return false, fmt.Sprintf("too many untranslated lines: %d of %d", unchanged, minLines)
	}
	if float64(changed)/float64(minLines) < 0.05 {
		return false, fmt.Sprintf("too few lines translated: %d of %d", changed, minLines)
	}

	if ok, msg := ValidateContent(translated); !ok {
		if !strings.Contains(msg, "too few subtitle lines") && !strings.Contains(msg, "too few words") {
			return false, msg
		}
	}
	return true, "translation quality validation passed"
}

// QualityScore grades a translated subtitle body 0..100.
func QualityScore(content string) int {
	textLines := extractTextLines(content)
	if len(textLines) == 0 {
		return 0
	}
	fullText := strings.Join(textLines, " ")

	score := 30

	switch detectLanguage(fullText) {
	case "pt":
		score += 30
	case "es", "en":
		score += 15
	}

	if len(fullText) > 200 {
		score += 10
	}
	if len(fullText) > 500 {
		score += 10
	}
	if len(fullText) > 1000 {
		score += 10
	}

	words := wordRe.FindAllString(strings.ToLower(fullText), -1)
	if len(words) > 0 {
		bonus := int(portugueseScore(fullText, words) * 100)
		if bonus > 20 {
			bonus = 20
		}
		score += bonus
	}

	if score > 100 {
		score = 100
	}
	return score
}

func detectLanguage(text string) string {
	if len(text) < 50 {
		return "unknown"
	}
	code := whatlanggo.DetectLang(text).Iso6391()
	if code == "" {
		return "unknown"
	}
	return code
}

// portugueseScore combines word-list matching, absence of English, and
// Portuguese morphology patterns into a 0..1 score.
func portugueseScore(fullText string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	ptCount, enCount := 0, 0
	for _, w := range words {
		if _, ok := portugueseWords[w]; ok {
			ptCount++
		}
		if _, ok := englishWords[w]; ok {
			enCount++
		}
	}
	ptRatio := float64(ptCount) / float64(len(words))
	enRatio := float64(enCount) / float64(len(words))

	patterns := countPortuguesePatterns(fullText, words)
	patternScore := float64(patterns) * 0.01
	if patternScore > 0.2 {
		patternScore = 0.2
	}

	return ptRatio*0.6 + (1-enRatio)*0.2 + patternScore*0.2
}

// countPortuguesePatterns weighs morphology that only Portuguese has.
func countPortuguesePatterns(text string, words []string) int {
	count := 0
	lower := strings.ToLower(text)
	for _, w := range words {
		switch {
		case strings.HasSuffix(w, "ção"):
			count += 3
		case strings.HasSuffix(w, "dade"):
			count += 2
		case len(w) > len("mente") && strings.HasSuffix(w, "mente"):
			count += 2
		}
	}
	count += 3 * strings.Count(lower, "você")
	count += 2 * countWord(words, "não")
	for _, verb := range []string{"é", "está", "tem", "foi"} {
		count += countWord(words, verb)
	}
	return count
}

func countWord(words []string, target string) int {
	n := 0
	for _, w := range words {
		if w == target {
			n++
		}
	}
	return n
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127
}

// extractTextLines pulls the spoken text out of raw SRT or ASS content,
// skipping numbering, timestamps, and section headers.
func extractTextLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || digitsRe.MatchString(line) || strings.Contains(line, "-->") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		if strings.HasPrefix(line, "Style:") || strings.HasPrefix(line, "Format:") {
			continue
		}
		if strings.HasPrefix(line, "Dialogue:") {
			parts := strings.SplitN(line, ",", 10)
			if len(parts) == 10 {
				text := overrideRe.ReplaceAllString(parts[9], "")
				if strings.TrimSpace(text) != "" {
					out = append(out, strings.TrimSpace(text))
				}
			}
			continue
		}
		clean := overrideRe.ReplaceAllString(htmlTagRe.ReplaceAllString(line, ""), "")
		if strings.TrimSpace(clean) != "" {
			out = append(out, strings.TrimSpace(clean))
		}
	}
	return out
}
