package classifier

import "github.com/sells-group/nightline/internal/model"

// minContentChars is the threshold below which a cleaned transcript counts
// as silence: the call connected to nothing that ever spoke.
const minContentChars = 10

// Phrase lists for the keyword fallback tier. Matching is ordered: live
// coverage first (service, then human), then voicemail, then IVR. A live
// pickup must never be misread as a recording, so the live checks win even
// when a voicemail phrase also appears (an operator saying "I can take a
// message" is still an operator).
var servicePhrases = []string{
	"how may i help",
	"how can i help",
	"what is your emergency",
	"can i get your name",
	"may i have your",
	"what's the address",
	"answering service",
	"after hours service",
	"after-hours service",
	"on-call",
	"on call technician",
	"let me dispatch",
	"i'll page",
	"callback number",
}

var humanPhrases = []string{
	"wrong number",
	"who is this",
	"who's calling",
	"what do you need",
	"speaking",
	"no problem",
	"you too",
	"have a good",
	"are you there",
	"can you hear me",
}

var voicemailPhrases = []string{
	"leave a message",
	"leave your message",
	"leave me a message",
	"record your message",
	"after the tone",
	"after the beep",
	"at the tone",
	"please leave",
	"voicemail",
	"mailbox",
	"not available",
	"can't come to the phone",
	"currently unavailable",
}

var ivrPhrases = []string{
	"press 1",
	"press 2",
	"press one",
	"press two",
	"press zero",
	"dial 0",
	"for sales",
	"for service",
	"for emergencies",
	"main menu",
	"please select",
	"to speak with",
	"extension",
}

// classifyKeywords is the final tier: ordered membership checks against the
// disclaimer-stripped transcript. It always decides.
func classifyKeywords(cleaned string) model.ClassificationResult {
	text := StripDisclaimers(cleaned)

	switch {
	case containsAny(text, servicePhrases):
		return verdict(model.AnsweredService, model.ConfidenceHigh,
			"answering service dialogue detected - they have after-hours coverage")
	case containsAny(text, humanPhrases):
		return verdict(model.AnsweredHuman, model.ConfidenceHigh,
			"live person answered the call")
	case containsAny(text, voicemailPhrases):
		return verdict(model.AnsweredVoicemail, model.ConfidenceHigh,
			"voicemail greeting with a recording prompt")
	case containsAny(text, ivrPhrases):
		return verdict(model.AnsweredIVROnly, model.ConfidenceMedium,
			"menu tree reached with no live contact")
	case len(text) < minContentChars:
		return verdict(model.AnsweredInconclusive, model.ConfidenceMedium,
			"call ended before anything substantive was heard")
	default:
		return verdict(model.AnsweredUnknown, model.ConfidenceLow,
			"could not determine what answered - manual review needed")
	}
}

// verdict builds a result with qualification derived from the canonical
// mapping, never from the matching branch.
func verdict(by model.AnsweredBy, conf model.Confidence, notes string) model.ClassificationResult {
	return model.ClassificationResult{
		AnsweredBy:  by,
		IsQualified: by.Qualifies(),
		Confidence:  conf,
		Notes:       notes,
	}
}
