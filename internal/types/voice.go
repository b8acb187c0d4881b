package types

// VoiceProfile names one synthetic voice configuration. Profiles are static
// configuration, not rows: each maps to a vendor voice identifier.
type VoiceProfile string

const (
	VoiceMan          VoiceProfile = "man"
	VoiceWoman        VoiceProfile = "woman"
	VoiceManFlemish   VoiceProfile = "man_vl"
	VoiceWomanFlemish VoiceProfile = "woman_vl"
)

var vendorVoiceIDs = map[VoiceProfile]string{
	VoiceMan:          "zwqMXWHsKBMIb9RPiWI0",
	VoiceWoman:        "8z5UhJ1uv7X8TN5yg8oI",
	VoiceManFlemish:   "tRyB8BgRzpNUv3o2XWD4",
	VoiceWomanFlemish: "ANHrhmaFeVN0QJaa0PhL",
}

func (p VoiceProfile) VendorVoiceID() string { return vendorVoiceIDs[p] }

// VoicePair is the (male, female) profile pair synthesized for a keyword.
type VoicePair struct {
	Man   VoiceProfile
	Woman VoiceProfile
}

// ProfilesForLanguage maps a keyword language to its voice pair. The second
// return value is false when the language is unrecognized and the English
// pair was used as the default; callers log the degradation.
func ProfilesForLanguage(language string) (VoicePair, bool) {
	switch language {
	case "en":
		return VoicePair{Man: VoiceMan, Woman: VoiceWoman}, true
	case "vl":
		return VoicePair{Man: VoiceManFlemish, Woman: VoiceWomanFlemish}, true
	default:
		return VoicePair{Man: VoiceMan, Woman: VoiceWoman}, false
	}
}
