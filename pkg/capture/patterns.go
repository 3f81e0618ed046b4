package capture

import "regexp"

// PatternGroup is a named set of compiled patterns covering one concern. The
// tables are data: tests enumerate them independently of classifier logic,
// and adding a language means adding rows, not code.
type PatternGroup struct {
	Name     string
	Patterns []*regexp.Regexp
}

// ExclusionGroups reject text outright, checked before any trigger. Length,
// trailing question mark, and emoji-count exclusions live in the classifier
// since they are not pattern-shaped.
var ExclusionGroups = []PatternGroup{
	{
		Name: "markup",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`<[a-zA-Z][^<>]*>`),
		},
	},
	{
		Name: "code-fence",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile("```"),
		},
	},
	{
		Name: "list-marker",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^\s*[-*+] `),
			regexp.MustCompile(`(?m)^\s*\d+\. `),
		},
	},
	{
		Name: "closing-phrase",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(got it|sounds good|will do|glad to help|happy to help|you'?re welcome|anything else)[.!]?\s*$`),
			regexp.MustCompile(`(?i)let me know if (you|there)[^?]*$`),
			regexp.MustCompile(`(好的|明白了|没问题|不客气)[。!!]?\s*$`),
		},
	},
}

// TriggerGroups accept text once no exclusion matched; any single match is
// enough. Every family carries at least English and Chinese forms.
var TriggerGroups = []PatternGroup{
	{
		Name: "explicit-request",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(remember (this|that|it)|don'?t forget|please note|keep in mind|save (this|that))\b`),
			regexp.MustCompile(`记住|别忘了|记一下|帮我记`),
		},
	},
	{
		Name: "preference",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi (really )?(prefer|like|love|hate|dislike|always use|usually use)\b`),
			regexp.MustCompile(`我(更|比较)?喜欢|我讨厌|我习惯用`),
		},
	},
	{
		Name: "decision",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(we|i|let'?s) (decided|agreed|chose|settled on|will go with|go with)\b`),
			regexp.MustCompile(`我们决定|我决定|就这么定|就用这个`),
		},
	},
	{
		Name: "phone",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`),
		},
	},
	{
		Name: "email",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		},
	},
	{
		Name: "introduction",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(my name is|i'?m called|call me|i go by)\b`),
			regexp.MustCompile(`我叫|我的名字`),
		},
	},
	{
		Name: "possessive-fact",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bmy (wife|husband|partner|son|daughter|birthday|address|employer|company|team|manager|boss|doctor|dog|cat)\b`),
			regexp.MustCompile(`我的(生日|地址|公司|团队|老板|妻子|丈夫|儿子|女儿)`),
		},
	},
	{
		Name: "emphasis",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(always|never|important|crucial|critical)\b`),
			regexp.MustCompile(`总是|从不|永远|重要|千万`),
		},
	},
	{
		Name: "location",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(i live in|i'?m based in|based out of|my timezone is|my time zone is)\b`),
			regexp.MustCompile(`我住在|我在.{1,10}(生活|工作)|我的时区`),
		},
	},
}

// categoryGroups maps trigger family names to the category they imply, in
// priority order. First matching family wins.
var categoryOrder = []struct {
	Category Category
	Families []string
}{
	{CategoryPreference, []string{"preference"}},
	{CategoryProject, []string{"decision"}},
	{CategoryPersonal, []string{"phone", "email", "introduction", "location"}},
}
