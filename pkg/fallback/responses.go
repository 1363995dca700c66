package fallback

// Static response templates, keyed by category then type. Templates carry
// placeholder tokens ({displayName}, {businessName}, {phone}, {purpose},
// {hours}) that are substituted at resolution time; the tables themselves
// are never mutated.

// Safety-tagged types. These always set ShouldExit regardless of what the
// dialogue engine would otherwise do.
const (
	TypeEmergency           = "emergency"
	TypeUnsubscribeDNC      = "unsubscribe_dnc"
	TypeChild               = "child"
	TypeNotIntendedCustomer = "not_intended_customer"
)

// defaultResponse is the library-wide fallback for unknown types: a neutral,
// polite clarification request. Resolve never fails to produce this at minimum.
var defaultResponse = Response{
	Primary: "I'm sorry, I didn't quite catch that. Could you say that again for me?",
	Alternatives: []string{
		"Apologies, I want to make sure I understand you correctly. Could you repeat that?",
		"Sorry about that, I missed what you said. Would you mind saying it once more?",
	},
	Tone: TonePolite,
}

var audioTechnicalResponses = map[string]Response{
	"cant_hear": {
		Primary: "I'm having a little trouble hearing you. Could you speak up just a bit?",
		Alternatives: []string{
			"Sorry, the line is a bit quiet on my end. Could you say that a little louder?",
			"I didn't catch that, the audio is faint. Could you repeat it for me?",
		},
		Tone: TonePolite,
	},
	"choppy_audio": {
		Primary: "The connection seems a bit unstable. If it keeps cutting out, I can call you back at {phone}.",
		Alternatives: []string{
			"I think the line is breaking up. Would you like me to try calling you back instead?",
			"The audio is cutting in and out on my end. I can ring you back if that's easier.",
		},
		Tone:                TonePolite,
		ShouldOfferCallback: true,
	},
	"echo": {
		Primary: "I'm hearing a bit of an echo on the line. Let's give it a moment and try again.",
		Alternatives: []string{
			"There's some echo on this call. Could you repeat that last part?",
		},
		Tone: ToneNeutral,
	},
	"background_noise": {
		Primary: "There's quite a bit of background noise. Is now still an okay time to talk?",
		Alternatives: []string{
			"It sounds like you might be somewhere noisy. Should I call back at a quieter time?",
			"I'm picking up a lot of noise on the line. Would another time work better?",
		},
		Tone:                TonePolite,
		ShouldOfferCallback: true,
	},
	"long_silence": {
		Primary: "Are you still there? I'm happy to wait if you need a moment.",
		Alternatives: []string{
			"Hello? I just want to make sure we're still connected.",
			"I didn't hear anything for a bit. Are you still with me?",
		},
		Tone: ToneCalm,
	},
}

var callerBehaviorResponses = map[string]Response{
	"angry": {
		Primary: "I completely understand, and I'm sorry for the frustration. I'll keep this brief.",
		Alternatives: []string{
			"I hear you, and I apologize for the inconvenience. Let me get right to the point.",
			"You're right to be frustrated, and I'm sorry. I'll be quick.",
		},
		Tone: ToneCalm,
	},
	"profanity": {
		Primary: "I understand you're upset. I'm here to help if you'd like, or I can let you go.",
		Alternatives: []string{
			"I can tell this isn't a good time. Would you prefer I end the call?",
		},
		Tone: ToneCalm,
	},
	"busy": {
		Primary: "Of course, I don't want to keep you. Can I call you back at a better time, maybe during {hours}?",
		Alternatives: []string{
			"No problem at all. When would be a better time to reach you?",
			"I understand you're busy. I can try again later if that works better.",
		},
		Tone:                TonePolite,
		ShouldOfferCallback: true,
	},
	"repeated_question": {
		Primary: "Happy to go over that again. Take all the time you need.",
		Alternatives: []string{
			"Sure, let me explain that once more.",
			"Of course, I'll run through it again.",
		},
		Tone: TonePolite,
	},
	"suspicious": {
		Primary: "That's a fair question. I'm calling on behalf of {businessName} about {purpose}, and you're welcome to verify by calling {phone}.",
		Alternatives: []string{
			"I understand the caution. This call is from {businessName}, and you can always call us back at {phone} to confirm.",
		},
		Tone: ToneProfessional,
	},
}

var emotionalSocialResponses = map[string]Response{
	TypeEmergency: {
		Primary: "It sounds like you may need immediate help. Please hang up and dial your local emergency number right away. I'll end this call now.",
		Alternatives: []string{
			"This sounds urgent. Please contact emergency services immediately. I'm going to let you go now.",
		},
		Tone:       ToneCalm,
		ShouldExit: true,
	},
	"distress": {
		Primary: "I'm really sorry you're going through that. There's no rush here, and we can pick this up another time if you'd prefer.",
		Alternatives: []string{
			"That sounds really difficult, and I'm sorry. Would you rather I call back another day?",
		},
		Tone:                ToneEmpathetic,
		ShouldOfferCallback: true,
	},
	"grief": {
		Primary: "I'm so sorry for your loss. Please don't worry about this call, we can reach out another time.",
		Alternatives: []string{
			"My sincere condolences. This can absolutely wait, please take care of yourself.",
		},
		Tone:                ToneEmpathetic,
		ShouldOfferCallback: true,
	},
	"lonely": {
		Primary: "I've enjoyed talking with you, {displayName}. Before I go, let me make sure I've covered what I called about.",
		Alternatives: []string{
			"It's been lovely chatting. Let me just finish up the reason for my call.",
		},
		Tone: ToneEmpathetic,
	},
}

var identityResponses = map[string]Response{
	TypeChild: {
		Primary: "It sounds like I may be speaking with a young person. I'll try again another time. Thanks, and take care!",
		Alternatives: []string{
			"I think I should speak with an adult in the household. I'll call back later. Bye for now!",
		},
		Tone:       TonePolite,
		ShouldExit: true,
	},
	TypeNotIntendedCustomer: {
		Primary: "My apologies, it seems I've reached the wrong person. Sorry for the interruption, and have a great day.",
		Alternatives: []string{
			"I'm sorry, I was trying to reach someone else. Apologies for the mix-up, take care.",
		},
		Tone:       TonePolite,
		ShouldExit: true,
	},
	"wrong_person": {
		Primary: "Ah, my mistake. Is {displayName} available, or is there a better time to reach them?",
		Alternatives: []string{
			"Sorry about that. Would {displayName} be available to talk, or should I call back later?",
		},
		Tone:                TonePolite,
		ShouldOfferCallback: true,
	},
	"identity_challenge": {
		Primary: "That's completely fair to ask. I'm a virtual assistant calling on behalf of {businessName} about {purpose}.",
		Alternatives: []string{
			"Good question. I'm an automated assistant for {businessName}, and I'm calling about {purpose}.",
		},
		Tone: ToneProfessional,
	},
}

var businessLogicResponses = map[string]Response{
	"outside_hours": {
		Primary: "Our team is available during {hours}. If you call {phone} then, someone can help you directly.",
		Alternatives: []string{
			"You can reach {businessName} during {hours} at {phone}.",
			"The best time to reach us is {hours}, and the number is {phone}.",
		},
		Tone: ToneProfessional,
	},
	"unknown_question": {
		Primary: "That's a great question, and I don't want to give you the wrong answer. I'll make sure someone from {businessName} follows up with you.",
		Alternatives: []string{
			"I don't have that information in front of me, but I'll note it down so someone can get back to you.",
			"I'm not certain about that one. Let me flag it so a member of our team can follow up.",
		},
		Tone:                  ToneProfessional,
		ShouldLogKnowledgeGap: true,
		ShouldOfferCallback:   true,
	},
	"pricing_detail": {
		Primary: "Pricing can depend on your specific situation, so I'd rather have someone from {businessName} confirm the exact figures with you.",
		Alternatives: []string{
			"I don't want to misquote you on pricing. Someone from our team can give you the exact numbers.",
		},
		Tone:                  ToneProfessional,
		ShouldLogKnowledgeGap: true,
		ShouldOfferCallback:   true,
	},
	TypeUnsubscribeDNC: {
		Primary: "Absolutely, I'll make sure you're removed from our calling list right away. Sorry for the bother, and have a good day.",
		Alternatives: []string{
			"Understood. I'm taking you off our list now, and you won't hear from us again. Take care.",
		},
		Tone:       TonePolite,
		ShouldExit: true,
	},
	"already_handled": {
		Primary: "Oh, that's good to hear! In that case I won't take any more of your time. Thanks, {displayName}.",
		Alternatives: []string{
			"Great, sounds like that's all sorted. Thanks for your time!",
		},
		Tone: ToneNeutral,
	},
}

// tables maps each non-normal category to its sub-table. Category normal is
// handled directly in Resolve and intentionally has no table.
var tables = map[Category]map[string]Response{
	CategoryAudioTechnical:  audioTechnicalResponses,
	CategoryCallerBehavior:  callerBehaviorResponses,
	CategoryEmotionalSocial: emotionalSocialResponses,
	CategoryIdentityIssues:  identityResponses,
	CategoryBusinessLogic:   businessLogicResponses,
}
