package nlp

// Valence lexicon, bilingual (the agents scrape Spanish-language pages but
// platforms also serve English reviews). Values follow the usual -4..4
// convention used by polarity lexicons.
var valenceLexicon = map[string]float64{
	// positive — Spanish
	"excelente":     3.2,
	"increíble":     3.0,
	"maravilloso":   3.1,
	"maravillosa":   3.1,
	"perfecto":      3.0,
	"perfecta":      3.0,
	"bueno":         1.9,
	"buena":         1.9,
	"bien":          1.6,
	"genial":        2.8,
	"encantó":       2.9,
	"encanta":       2.7,
	"encantador":    2.6,
	"agradable":     2.0,
	"cómodo":        1.8,
	"cómoda":        1.8,
	"confortable":   1.9,
	"limpio":        1.8,
	"limpia":        1.8,
	"impecable":     2.6,
	"amable":        2.1,
	"amables":       2.1,
	"atento":        1.9,
	"atenta":        1.9,
	"recomendado":   2.3,
	"recomendable":  2.2,
	"recomiendo":    2.4,
	"hermoso":       2.7,
	"hermosa":       2.7,
	"bonito":        2.0,
	"bonita":        2.0,
	"espectacular":  3.1,
	"fantástico":    3.0,
	"fantástica":    3.0,
	"delicioso":     2.5,
	"deliciosa":     2.5,
	"rico":          1.7,
	"rica":          1.7,
	"tranquilo":     1.5,
	"tranquila":     1.5,
	"acogedor":      2.1,
	"acogedora":     2.1,
	"profesional":   1.6,
	"puntual":       1.4,
	"rápido":        1.3,
	"rápida":        1.3,
	"moderno":       1.2,
	"moderna":       1.2,
	"gracias":       1.5,
	"feliz":         2.2,
	"felices":       2.2,
	"mejor":         2.0,
	"gustó":         2.0,
	"disfrutamos":   2.1,
	"sostenible":    1.4,
	"ecológico":     1.3,
	"ecológica":     1.3,
	// positive — English
	"excellent":  3.2,
	"amazing":    3.0,
	"wonderful":  3.1,
	"perfect":    3.0,
	"good":       1.9,
	"great":      2.6,
	"nice":       1.8,
	"lovely":     2.4,
	"clean":      1.8,
	"comfortable": 1.9,
	"friendly":   2.1,
	"helpful":    1.9,
	"beautiful":  2.7,
	"fantastic":  3.0,
	"delicious":  2.5,
	"cozy":       2.0,
	"quiet":      1.4,
	"recommend":  2.3,
	"recommended": 2.3,
	"best":       2.4,
	"enjoyed":    2.1,
	"love":       2.8,
	"loved":      2.9,
	"happy":      2.2,

	// negative — Spanish
	"terrible":      -2.9,
	"horrible":      -3.0,
	"pésimo":        -3.1,
	"pésima":        -3.1,
	"malo":          -1.9,
	"mala":          -1.9,
	"mal":           -1.7,
	"peor":          -2.4,
	"sucio":         -2.2,
	"sucia":         -2.2,
	"suciedad":      -2.3,
	"ruidoso":       -1.8,
	"ruidosa":       -1.8,
	"ruido":         -1.5,
	"incómodo":      -1.8,
	"incómoda":      -1.8,
	"grosero":       -2.4,
	"grosera":       -2.4,
	"maleducado":    -2.4,
	"decepción":     -2.5,
	"decepcionante": -2.5,
	"decepcionado":  -2.4,
	"caro":          -1.3,
	"cara":          -1.3,
	"viejo":         -1.1,
	"vieja":         -1.1,
	"roto":          -1.8,
	"rota":          -1.8,
	"lento":         -1.4,
	"lenta":         -1.4,
	"frío":          -1.2,
	"fría":          -1.2,
	"olor":          -1.3,
	"cucarachas":    -3.2,
	"insectos":      -2.4,
	"desastre":      -2.8,
	"queja":         -1.8,
	"problema":      -1.6,
	"problemas":     -1.7,
	"nunca":         -1.2,
	"evitar":        -1.9,
	"estafa":        -3.0,
	// negative — English
	"awful":        -3.0,
	"bad":          -1.9,
	"worst":        -3.1,
	"dirty":        -2.2,
	"noisy":        -1.8,
	"rude":         -2.4,
	"uncomfortable": -1.8,
	"disappointing": -2.5,
	"disappointed":  -2.4,
	"broken":       -1.8,
	"smell":        -1.3,
	"expensive":    -1.3,
	"slow":         -1.4,
	"cold":         -1.2,
	"disaster":     -2.8,
	"avoid":        -1.9,
	"scam":         -3.0,
	"disgusting":   -3.1,
}

// Words that flip the valence of what follows.
var negatorWords = map[string]struct{}{
	"no":      {},
	"nunca":   {},
	"nada":    {},
	"sin":     {},
	"tampoco": {},
	"not":     {},
	"never":   {},
	"isnt":    {},
	"wasnt":   {},
	"dont":    {},
	"didnt":   {},
}

// Intensity boosters, added to (or subtracted from) the following valence.
var boosterWords = map[string]float64{
	"muy":        0.293,
	"demasiado":  0.293,
	"super":      0.293,
	"súper":      0.293,
	"bastante":   0.2,
	"realmente":  0.293,
	"totalmente": 0.293,
	"very":       0.293,
	"really":     0.293,
	"extremely":  0.35,
	"totally":    0.293,
	"so":         0.2,
}
