package prompts

import "fmt"

// ScholarSystem is the system instruction of the zero-shot file translator.
const ScholarSystem = `You are a Tibetan Buddhist scholar and translator with expertise in translating Tibetan texts.
Translate with sensitivity to the context of Tibetan Buddhist philosophy and terminology.
Provide ONLY the translation with no explanations or commentary.`

// FewShot holds example turns shown before the zero-shot request.
var FewShot = []struct{ User, Model string }{
	{
		User:  "Translate this Tibetan text to English: འཕགས་པ་ཤེས་རབ་ཀྱི་ཕ་རོལ་ཏུ་ཕྱིན་པའི་སྙིང་པོ།",
		Model: "The Heart of the Perfection of Wisdom",
	},
	{
		User:  "Translate this Tibetan text to Hindi: བྱང་ཆུབ་སེམས་དཔའ་སེམས་དཔའ་ཆེན་པོ་འཕགས་པ་སྤྱན་རས་གཟིགས་དབང་ཕྱུག་གིས།",
		Model: "महाबोधिसत्व आर्य अवलोकितेश्वर ने",
	},
	{
		User:  "Translate this Tibetan text to Chinese: ཤེས་རབ་ཀྱི་ཕ་རོལ་ཏུ་ཕྱིན་པ་ཟབ་མོ་ལ་སྤྱོད་པའི་ཚེ།",
		Model: "行深般若波羅蜜多時",
	},
}

// ZeroShotTranslation is the final user turn of the file translator.
func ZeroShotTranslation(text, language string) string {
	return fmt.Sprintf("Translate this Tibetan text to %s: %s", lang(language), text)
}
