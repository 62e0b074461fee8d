package query

// LegalKeywords is the corrector vocabulary. Order is significant: when two
// keywords are equally close to a token, the earlier one wins.
var LegalKeywords = []string{
	"article",
	"section",
	"constitution",
	"bharatiya",
	"nyaya",
	"sanhita",
	"punishment",
	"imprisonment",
	"fine",
	"penalty",
	"offence",
	"crime",
	"murder",
	"theft",
	"rape",
	"assault",
	"kidnapping",
	"dowry",
	"fundamental",
	"right",
	"liberty",
	"equality",
	"justice",
	"bail",
	"arrest",
}

// CommonWords are everyday words within two edits of a keyword. The
// corrector leaves them alone.
var CommonWords = []string{
	"action", "back", "ball", "bank", "bill", "border", "call", "came", "care",
	"case", "done", "down", "eight", "election", "fail", "fall", "fight", "file",
	"fill", "film", "find", "fire", "firm", "five", "forest", "game", "give",
	"gone", "hall", "have", "high", "hire", "hope", "institution", "jail", "kind",
	"left", "life", "light", "like", "line", "live", "made", "mail", "main", "make",
	"mention", "might", "mind", "mine", "nail", "name", "night", "nine", "none",
	"order", "page", "paid", "pain", "paper", "price", "pride", "prime", "quality",
	"race", "rail", "range", "rank", "rare", "rate", "rest", "rich", "ride", "role",
	"rule", "said", "sail", "same", "sanction", "save", "selection", "side",
	"sight", "site", "station", "tail", "take", "that", "their", "them", "then",
	"there", "these", "they", "tight", "time", "under", "wage", "wait", "wall",
	"weight", "wide", "wife", "wine", "wire", "worry", "write", "zone",
}

// SectionMapping links a superseded IPC section to its BNS replacement.
type SectionMapping struct {
	Legacy  string
	Current string
}

// IPCToBNS is scanned in order and the first match wins. Codes only match
// whole, so 304 never fires inside 304A.
var IPCToBNS = []SectionMapping{
	{Legacy: "302", Current: "103"},
	{Legacy: "304", Current: "105"},
	{Legacy: "304A", Current: "106"},
	{Legacy: "304B", Current: "80"},
	{Legacy: "306", Current: "108"},
	{Legacy: "307", Current: "109"},
	{Legacy: "376", Current: "64"},
	{Legacy: "375", Current: "63"},
	{Legacy: "378", Current: "303"},
	{Legacy: "379", Current: "303"},
	{Legacy: "420", Current: "318"},
	{Legacy: "498A", Current: "85"},
	{Legacy: "124A", Current: "152"},
	{Legacy: "499", Current: "356"},
	{Legacy: "500", Current: "356"},
}

// LegacyFlags mark a question as talking about the IPC regime.
var LegacyFlags = []string{"ipc", "indian penal code", "old", "1860"}

var constitutionKeywords = []string{
	"article",
	"constitution",
	"fundamental right",
	"preamble",
	"liberty",
	"equality",
	"directive principle",
}

var criminalKeywords = []string{
	"section",
	"bns",
	"ipc",
	"sanhita",
	"punishment",
	"imprisonment",
	"fine",
	"murder",
	"theft",
	"offence",
	"bail",
}

var statisticsKeywords = []string{"pending", "case", "stat"}

// Topic names the canned reply an identity or small-talk question gets.
type Topic string

const (
	TopicNone      Topic = ""
	TopicIdentity  Topic = "identity"
	TopicCreator   Topic = "creator"
	TopicPurpose   Topic = "purpose"
	TopicGreeting  Topic = "greeting"
	TopicWellbeing Topic = "wellbeing"
	TopicThanks    Topic = "thanks"
	TopicFarewell  Topic = "farewell"
	TopicFun       Topic = "fun"
)

type phrase struct {
	text  string
	topic Topic
}

var identityPhrases = []phrase{
	{"who made you", TopicCreator},
	{"who created you", TopicCreator},
	{"created you", TopicCreator},
	{"who built you", TopicCreator},
	{"your creator", TopicCreator},
	{"who are you", TopicIdentity},
	{"your name", TopicIdentity},
	{"what are you", TopicIdentity},
	{"what can you do", TopicPurpose},
	{"what do you do", TopicPurpose},
	{"your purpose", TopicPurpose},
	{"are you alive", TopicFun},
	{"do you sleep", TopicFun},
	{"do you dream", TopicFun},
}

var smallTalkPhrases = []phrase{
	{"how are you", TopicWellbeing},
	{"thank you", TopicThanks},
	{"thanks", TopicThanks},
	{"goodbye", TopicFarewell},
	{"bye", TopicFarewell},
}

// greetings only count when they are the whole message.
var greetings = []string{"hi", "hello", "hey", "namaste", "good morning", "good evening"}
