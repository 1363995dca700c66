package persona

// Fixed phrase sets consulted by the rules. All matching is done against a
// lower-cased copy of the text; entries here must stay lower case.

// commandReplacements softens command-toned phrasing. Keys are matched
// case-insensitively and replaced in place.
var commandReplacements = map[string]string{
	"you must":    "you might want to",
	"you have to": "you may want to",
	"you need to": "it would help to",
	"you should":  "you could",
}

// politeMarkers indicate the text already carries a politeness cue, so no
// injection is needed.
var politeMarkers = []string{
	"please",
	"thank",
	"kindly",
	"appreciate",
	"sorry",
}

// politePrefixes are prepended (one, chosen at random) to roughly 30% of
// utterances that lack any polite marker.
var politePrefixes = []string{
	"Thanks so much for your time. ",
	"I appreciate you taking the call. ",
	"Thanks for bearing with me. ",
}

// uncertaintyMarkers trigger the honest-limitation guarantee.
var uncertaintyMarkers = []string{
	"i don't know",
	"i do not know",
	"not sure",
	"i'm uncertain",
	"i am uncertain",
}

// followupMarkers indicate the text already promises follow-up.
var followupMarkers = []string{
	"follow up",
	"follow-up",
	"get back to you",
	"someone will",
}

// followupCommitment is appended when an uncertainty marker appears without
// an accompanying follow-up promise.
const followupCommitment = " I'll make a note of that and have someone get back to you with the right answer."

// fillerQualifiers are stripped, in order, when an utterance exceeds its
// length budget.
var fillerQualifiers = []string{
	"to be honest, ",
	"to be honest ",
	"you know, ",
	"you know ",
	"in other words, ",
	"actually, ",
	"actually ",
	"basically, ",
	"basically ",
	"honestly, ",
	"honestly ",
	"just to clarify, ",
}

// identityChallenges are caller phrasings that ask whether the agent is human.
var identityChallenges = []string{
	"are you a person",
	"are you human",
	"are you a human",
	"are you a real person",
	"are you a robot",
	"are you an ai",
	"is this a robot",
	"is this a real person",
	"am i talking to a machine",
	"am i speaking to a machine",
}

// disclosureMarkers indicate the text already self-identifies.
var disclosureMarkers = []string{
	"virtual assistant",
	"automated assistant",
	"digital assistant",
	"i'm an assistant",
}

// exitAcknowledgments indicate a closing acknowledgment is already present.
var exitAcknowledgments = []string{
	"i'll let you go",
	"i will let you go",
	"no problem at all",
	"won't keep you",
	"sorry to have bothered",
}

// exitAcknowledgment is appended when the caller asked to end the call and
// the text does not yet acknowledge it.
const exitAcknowledgment = " No problem at all, I'll let you go now."

// followupConfirmation is appended when a human follow-up has been promised
// and the text does not yet confirm it.
const followupConfirmation = " Someone from our team will follow up with you shortly."

// signOffMarkers are recognized sign-off phrases.
var signOffMarkers = []string{
	"goodbye",
	"bye",
	"take care",
	"have a great day",
	"have a good day",
	"have a wonderful day",
	"talk soon",
}

// signOffs are appended (one, chosen at random) to closing turns that lack
// a recognized sign-off.
var signOffs = []string{
	" Thanks again for your time, have a great day!",
	" Take care, goodbye!",
	" Have a wonderful day, goodbye!",
}

// bannedPhrases are disallowed self-references. Each occurrence is replaced
// with the agent's name by the final scrub.
var bannedPhrases = []string{
	"as an ai language model",
	"as an ai",
	"as a language model",
	"i'm just a bot",
	"i am just a bot",
	"i'm just an ai",
	"i am just an ai",
}
