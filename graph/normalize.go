package graph

import "strings"

// punctuation stripped from entity names before comparison. Both full-width
// (CJK) and half-width variants are listed because extractors mix scripts.
var punctuation = []string{
	"，", "。", "！", "？", "；", "：", "“", "”", "‘", "’",
	"(", ")", "（", "）", "【", "】", "《", "》", "<", ">", "/", "\\",
}

// traditionalToSimplified maps common traditional Chinese characters to
// their simplified forms so the two scripts collapse to one identity.
var traditionalToSimplified = map[string]string{
	"著": "着", "麼": "么", "來": "来", "說": "说", "開": "开",
	"關": "关", "這": "这", "個": "个", "們": "们", "時": "时",
	"間": "间", "會": "会", "員": "员", "業": "业", "學": "学",
	"習": "习", "國": "国", "華": "华", "發": "发", "現": "现",
	"進": "进", "後": "后", "種": "种", "類": "类", "動": "动",
	"態": "态", "狀": "状", "報": "报", "導": "导", "義": "义",
	"買": "买", "購": "购", "賣": "卖", "販": "贩", "條": "条",
	"線": "线", "網": "网", "電": "电", "腦": "脑", "機": "机",
	"車": "车", "還": "还", "選": "选", "擇": "择", "話": "话",
	"對": "对", "過": "过", "經": "经", "內": "内", "並": "并",
	"確": "确", "實": "实", "際": "际", "題": "题", "問": "问",
	"結": "结", "處": "处", "場": "场", "層": "层", "點": "点",
	"觀": "观", "應": "应", "該": "该", "數": "数", "計": "计",
	"記": "记", "錄": "录", "據": "据", "準": "准", "標": "标",
}

// synonyms folds common aliases onto one canonical form by substring
// replacement. Applied after lowercasing, so keys are lowercase.
var synonyms = []struct{ from, to string }{
	{"artificial intelligence", "人工智能"},
	{"machine learning", "机器学习"},
	{"deep learning", "深度学习"},
	{"blockchain", "区块链"},
	{"quantum computing", "量子计算"},
	{"quantum computer", "量子计算机"},
	{"ai", "人工智能"},
	{"ml", "机器学习"},
}

// NormalizeName canonicalizes an entity name for identity derivation and
// same-entity detection. Steps, in order: trim, collapse whitespace runs,
// strip punctuation, lowercase, traditional-to-simplified substitution,
// synonym folding. Pure and deterministic.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Join(strings.Fields(name), " ")

	for _, p := range punctuation {
		name = strings.ReplaceAll(name, p, "")
	}

	name = strings.ToLower(name)

	for trad, simp := range traditionalToSimplified {
		name = strings.ReplaceAll(name, trad, simp)
	}

	// Ordered slice, not a map: longer phrases fold before their shorter
	// substrings so replacement stays deterministic.
	for _, s := range synonyms {
		if strings.Contains(name, s.from) {
			name = strings.ReplaceAll(name, s.from, s.to)
		}
	}

	return name
}
