package glossary

// globalTerms is the built-in EN/JP → pt-BR glossary shared by every
// series. Honorifics and established anime vocabulary stay untranslated;
// the rest pins the preferred Brazilian Portuguese rendering.
var globalTerms = map[string]string{
	// honorifics and address forms
	"senpai": "senpai",
	"sensei": "sensei",
	"sama":   "sama",
	"kun":    "kun",
	"chan":   "chan",
	"san":    "san",
	"dono":   "dono",
	"onii-chan": "onii-chan",
	"onee-chan": "onee-chan",
	"onii-san":  "onii-san",
	"onee-san":  "onee-san",
	"aniki":     "aniki",
	"aneki":     "aneki",

	// family
	"otousan": "papai",
	"okaasan": "mamãe",
	"ojiisan": "vovô",
	"obaasan": "vovó",
	"oniisan": "irmão mais velho",
	"oneesan": "irmã mais velha",
	"imouto":  "irmã mais nova",
	"otouto":  "irmão mais novo",

	// interjections and common words
	"nani":     "o quê",
	"baka":     "idiota",
	"sugoi":    "incrível",
	"kawaii":   "fofinho",
	"yatta":    "consegui",
	"hai":      "sim",
	"iie":      "não",
	"arigato":  "arigato",
	"gomen":    "desculpa",
	"gomenasai": "me desculpe",
	"sumimasen": "com licença",
	"daijoubu":  "tudo bem",
	"ganbatte":  "força",
	"yokatta":   "que bom",
	"urusai":    "cala a boca",
	"masaka":    "não pode ser",
	"yare yare": "francamente",
	"itai":      "ai",
	"abunai":    "cuidado",
	"chotto":    "espera",
	"minna":     "pessoal",
	"oi":        "ei",
	"ano":       "bem...",
	"eto":       "é...",
	"mou":       "afe",
	"zannen":    "que pena",

	// greetings and set phrases
	"ohayo":        "bom dia",
	"konnichiwa":   "olá",
	"konbanwa":     "boa noite",
	"sayonara":     "adeus",
	"oyasumi":      "boa noite",
	"itadakimasu":  "bom apetite",
	"gochisousama": "obrigado pela comida",
	"tadaima":      "cheguei",
	"okaeri":       "bem-vindo de volta",
	"ittekimasu":   "estou indo",
	"itterasshai":  "vá com cuidado",
	"hajimemashite": "prazer em conhecer",
	"yoroshiku":     "conto com você",
	"omedetou":      "parabéns",
	"otsukaresama":  "bom trabalho",

	// battle and power vocabulary
	"bankai":      "bankai",
	"shikai":      "shikai",
	"sharingan":   "sharingan",
	"rasengan":    "rasengan",
	"kamehameha":  "kamehameha",
	"jutsu":       "jutsu",
	"ninjutsu":    "ninjutsu",
	"genjutsu":    "genjutsu",
	"taijutsu":    "taijutsu",
	"chakra":      "chakra",
	"ki":          "ki",
	"kekkei genkai": "kekkei genkai",
	"jinchuuriki":   "jinchuuriki",
	"hokage":        "hokage",
	"shinigami":     "shinigami",
	"zanpakuto":     "zanpakuto",
	"quincy":        "quincy",
	"hollow":        "hollow",
	"nakama":        "companheiro",
	"haki":          "haki",
	"akuma no mi":   "akuma no mi",
	"devil fruit":   "fruta do diabo",
	"saiyan":        "saiyajin",
	"super saiyan":  "super saiyajin",
	"dojo":          "dojô",
	"katana":        "katana",
	"shuriken":      "shuriken",
	"kunai":         "kunai",
	"ronin":         "ronin",
	"samurai":       "samurai",
	"ninja":         "ninja",
	"shinobi":       "shinobi",
	"kunoichi":      "kunoichi",
	"youkai":        "youkai",
	"oni":           "oni",
	"kitsune":       "kitsune",
	"tanuki":        "tanuki",
	"kami":          "kami",
	"mahou":         "magia",
	"mahou shoujo":  "garota mágica",

	// food
	"ramen":    "lámen",
	"onigiri":  "onigiri",
	"bento":    "bentô",
	"mochi":    "mochi",
	"dango":    "dango",
	"takoyaki": "takoyaki",
	"sushi":    "sushi",
	"sashimi":  "sashimi",
	"miso":     "missô",
	"sake":     "saquê",
	"taiyaki":  "taiyaki",
	"udon":     "udon",
	"soba":     "sobá",
	"tempura":  "tempurá",
	"curry":    "curry",
	"melon pan": "melon pan",

	// places, events and culture
	"onsen":    "onsen",
	"matsuri":  "festival",
	"hanami":   "hanami",
	"shrine":   "santuário",
	"torii":    "torii",
	"kotatsu":  "kotatsu",
	"futon":    "futon",
	"tatami":   "tatame",
	"yukata":   "yukata",
	"kimono":   "quimono",
	"seifuku":  "uniforme escolar",
	"bunkasai": "festival cultural",
	"juku":     "cursinho",
	"karaoke":  "karaokê",
	"manga":    "mangá",
	"anime":    "anime",
	"otaku":    "otaku",
	"cosplay":  "cosplay",
	"dojinshi": "doujinshi",
	"isekai":   "isekai",
	"tsundere": "tsundere",
	"yandere":  "yandere",
	"senki":    "senki",

	// school vocabulary
	"student council":  "grêmio estudantil",
	"class rep":        "representante de classe",
	"transfer student": "aluno transferido",
	"homeroom":         "sala de aula",
	"entrance exam":    "vestibular",
	"cram school":      "cursinho",
	"club room":        "sala do clube",
	"cultural festival": "festival cultural",
	"sports festival":   "festival esportivo",

	// common English terms with a fixed preferred rendering
	"big brother": "irmão mais velho",
	"big sister":  "irmã mais velha",
	"master":      "mestre",
	"lord":        "senhor",
	"demon lord":  "rei demônio",
	"demon king":  "rei demônio",
	"hero":        "herói",
	"guild":       "guilda",
	"adventurer":  "aventureiro",
	"magic circle": "círculo mágico",
	"holy sword":   "espada sagrada",
	"sword saint":  "santo da espada",
	"dungeon":      "masmorra",
	"party":        "grupo",
	"quest":        "missão",
	"skill":        "habilidade",
	"stat":         "atributo",
	"level up":     "subir de nível",
	"boss":         "chefe",
	"overlord":     "soberano",
	"kingdom":      "reino",
	"empire":       "império",
	"princess":     "princesa",
	"your highness": "alteza",
	"your majesty":  "majestade",
}
