package prompt

import "strings"

// Example is a source/target pair shown to the model before the real
// line.
type Example struct {
	EN string
	PT string
}

// DefaultMaxExamples caps how many few-shot pairs go into a prompt.
const DefaultMaxExamples = 4

var fewshotAnime = []Example{
	{
		EN: "If my lifespan was predetermined, I wonder how I'd handle that?",
		PT: "Se minha vida fosse predeterminada, me pergunto como eu lidaria com isso?",
	},
	{
		EN: "Don't underestimate the power of a Saiyan!",
		PT: "Não subestime o poder de um Saiyan!",
	},
	{
		EN: "Senpai, you really saved me back there. Arigato!",
		PT: "Senpai, você realmente me salvou lá atrás. Arigato!",
	},
	{
		EN: "I'll never forgive you for what you did to my nakama!",
		PT: "Eu nunca vou te perdoar pelo que fez com meus nakama!",
	},
}

var fewshotLiveAction = []Example{
	{
		EN: "Look, I know it's none of my business, but you gotta stop doing this to yourself.",
		PT: "Olha, eu sei que não é da minha conta, mas você precisa parar de fazer isso consigo mesmo.",
	},
	{
		EN: "Are you kidding me right now? This is the worst timing ever!",
		PT: "Tá de brincadeira comigo? Esse é o pior momento possível!",
	},
	{
		EN: "I've been thinking... maybe we should take a break.",
		PT: "Eu tava pensando... talvez a gente devesse dar um tempo.",
	},
	{
		EN: "Dude, you're not gonna believe what just happened.",
		PT: "Cara, você não vai acreditar no que acabou de acontecer.",
	},
}

var fewshotDocumentary = []Example{
	{
		EN: "The migration patterns of these species have been extensively studied over the past decade.",
		PT: "Os padrões migratórios dessas espécies foram extensivamente estudados na última década.",
	},
	{
		EN: "Scientists believe that climate change could drastically alter the ecosystem within the next 50 years.",
		PT: "Cientistas acreditam que as mudanças climáticas podem alterar drasticamente o ecossistema nos próximos 50 anos.",
	},
	{
		EN: "This remarkable discovery challenges everything we thought we knew about human evolution.",
		PT: "Essa descoberta notável desafia tudo que pensávamos saber sobre a evolução humana.",
	},
}

var fewshotNeutral = []Example{
	{EN: "If my lifespan was predetermined", PT: "Se minha vida fosse predeterminada"},
	{EN: "I wonder how I'd handle that?", PT: "Me pergunto como eu lidaria com isso?"},
	{EN: "Don't......", PT: "Não..."},
	{EN: "What the hell are you talking about?", PT: "Que droga você tá falando?"},
}

var genreBanks = map[string][]Example{
	"anime":         fewshotAnime,
	"animation":     fewshotAnime,
	"shounen":       fewshotAnime,
	"shoujo":        fewshotAnime,
	"seinen":        fewshotAnime,
	"josei":         fewshotAnime,
	"isekai":        fewshotAnime,
	"mecha":         fewshotAnime,
	"magical girl":  fewshotAnime,
	"slice of life": fewshotAnime,

	"live_action": fewshotLiveAction,
	"drama":       fewshotLiveAction,
	"comedy":      fewshotLiveAction,
	"action":      fewshotLiveAction,
	"thriller":    fewshotLiveAction,
	"horror":      fewshotLiveAction,
	"romance":     fewshotLiveAction,
	"crime":       fewshotLiveAction,
	"mystery":     fewshotLiveAction,
	"sci-fi":      fewshotLiveAction,
	"fantasy":     fewshotLiveAction,
	"adventure":   fewshotLiveAction,
	"western":     fewshotLiveAction,
	"war":         fewshotLiveAction,

	"documentary": fewshotDocumentary,
	"news":        fewshotDocumentary,
	"reality":     fewshotDocumentary,
	"talk show":   fewshotDocumentary,
	"educational": fewshotDocumentary,
	"history":     fewshotDocumentary,
	"science":     fewshotDocumentary,
	"nature":      fewshotDocumentary,
	"biography":   fewshotDocumentary,
}

// FewshotExamples picks the example bank matching the series type, then
// its genres, falling back to a neutral set.
func FewshotExamples(seriesType string, genres []string, maxExamples int) []Example {
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamples
	}

	if seriesType != "" {
		if bank, ok := genreBanks[strings.ToLower(seriesType)]; ok {
			return clip(bank, maxExamples)
		}
	}
	for _, genre := range genres {
		if bank, ok := genreBanks[strings.ToLower(genre)]; ok {
			return clip(bank, maxExamples)
		}
	}
	return clip(fewshotNeutral, maxExamples)
}

func clip(bank []Example, n int) []Example {
	if len(bank) > n {
		return bank[:n]
	}
	return bank
}
