package cleaning

// Delimiters split one detected text into independent names.
const Delimiters = "&/-"

// MinLetters is the smallest letter count a cleaned name may have.
const MinLetters = 3

// Corrections restores diacritics on surnames the detector commonly reads without
// them. Values must never appear as keys.
var Corrections = map[string]string{
	"Muller":   "Müller",
	"Moller":   "Möller",
	"Mohler":   "Möhler",
	"Schafer":  "Schäfer",
	"Jager":    "Jäger",
	"Kruger":   "Krüger",
	"Konig":    "König",
	"Bohm":     "Böhm",
	"Kohler":   "Köhler",
	"Schroder": "Schröder",
	"Gunther":  "Günther",
	"Hofler":   "Höfler",
	"Vogele":   "Vögele",
	"Bruckner": "Brückner",
	"Frohlich": "Fröhlich",
	"Gartner":  "Gärtner",
	"Dorfler":  "Dörfler",
	"Schutz":   "Schütz",
	"Wohler":   "Wöhler",
	"Nuber":    "Nüber",
}

// Blacklist holds administrative and advertising terms found on mailboxes and
// doorbell plates. A candidate containing any of them is dropped.
var Blacklist = []string{
	"Werbung",
	"Reklame",
	"Prospekt",
	"Anzeigen",
	"Zeitung",
	"Wochenblatt",
	"Briefkasten",
	"Hausverwaltung",
	"Verwaltung",
	"Hausmeister",
	"Immobilien",
	"GmbH",
	"Einwurf",
	"Zustellung",
	"Eingang",
	"Notruf",
	"Bitte",
	"Danke",
}
