package convert

var dialects = map[string]dialect{
	"cat": catDialect(),
	"dog": dogDialect(),

	"raccoon": raccoonDialect(),

	// Accepted chat animals without a rule set yet; messages pass through unchanged.
	"hamster": {},
	"monkey":  {},
}

func catDialect() dialect {
	rules := []rule{
		mustRule(`안녕`, "안냥"),
		mustRule(`하이`, "냥하"),
		mustRule(`([가-힣]+)나요`+endWord, "$1냥"),
		mustRule(`([가-힣]+)가요`+endWord, "$1가냥"),
		mustRule(`(?<![가-힣])헐(?![가-힣])`, "먀아"),
		mustRule(`([가-힣]+)드립니다`+endWord, "$1드립니다냥"),
	}
	rules = append(rules, intensifiers("냥")...)
	rules = append(rules,
		mustRule(`(?<![가-힣])좋아`+endWord, "냥좋아"),
		mustRule(`(?<![가-힣])졸려`+endWord, "냥졸려"),
		mustRule(`(?<![가-힣])대박`+endWord, "냥대박"),
		mustRule(`([가-힣]+)싶어`+endWord, "$1싶냥"),
		mustRule(`ㄱㄱ`, "고고냥"),
		mustRule(`(?<![가-힣])하([,.])`, "냐아$1"),
		mustRule(`([가-힣]+)지죠`+endWord, "$1지냐옹"),
		mustRule(`([가-힣]+)자나`+endWord, "$1자냐아"),
		mustRule(`([가-힣]+)임`+endWord, "$1이다냥"),
		mustRule(`([가-힣]+)잖아(?=[!?\s.,~]|$)`, "$1잖냐옹"),
		mustRule(`([가-힣]+)겁니다`+endWord, "$1거다냥"),
		mustRule(`([가-힣]+)군`+endWord, "$1구냐아"),
		mustRule(`귀엽다`+endWord, "귀엽다냐하"),

		// answers
		mustRule(`^응`+endWord, "냥"),
		mustRule(`(\s)응`+endWord, "$1냥"),
		mustRule(`^네([!?.,])`, "냥$1"),
		mustRule(`^네(?=\s*$)`, "냥"),
		mustRule(`(\s)네([!?.,])`, "$1냥$2"),
		mustRule(`^예([!?.,])`, "녜$1"),
		mustRule(`^예(?=\s*$)`, "녜"),

		// interjections
		mustRule(`^(와|오|아)!`, "냐아!"),
		mustRule(`^(와|오|아)(?=\s|$)`, "냐아"),
		mustRule(`(?<![가-힣])(앙|앗)(?![가-힣])`, "냐$1"),
		mustRule(`(?<![가-힣])(으악|아악)(?![가-힣])`, "냐악"),

		// consonant shorthand, longest first
		mustRule(`ㅎㅇㅌ`, "냥이팅"),
		mustRule(`ㅎㅇ`, "하이다냥~"),
		mustRule(`ㅇㅁ`, "어머냥"),
		mustRule(`ㅁㅇ`, "모냥"),
		mustRule(`ㄱㅊ`, "괜찮냥"),
		mustRule(`(?<!ㄱ)ㅇㅇ`, "웅냥"),
		mustRule(`ㅇㄸ`, "어떠냥"),
		mustRule(`(?<![가-힣])아하(?![가-힣])`, "냐하"),
		mustRule(`(ㅋㅋ+)`, "$1냥하하"),
		mustRule(`(ㅎㅎ+)`, "$1먀하하"),
		mustRule(`ㅜ+`, "냐아.."),

		mustRule(`개웃`, "냥웃"),
		mustRule(`(\s)개(이쁘|귀엽|귀여)`, "$1냥$2"),
		mustRule(`(\s)존(잼|맛|예|귀|좋)`, "$1냥$2"),
		mustRule(`(맞아|마자|마좌|마쟈)(?![가-힣])`, "$1냥"),

		mustRule(`([가-힣])(다|나|냐)(?!\w)`, "$1$2옹"),
		mustRule(`([가-힣])요(?!\w)`, "$1야옹"),
	)

	return dialect{
		rules:   rules,
		endings: endingRules("냥", "냥옹"),
		cleanup: []rule{
			mustRule(`(냐앙|냐앗|냐악|냐하하|냐하|냐아|녜|먀아|먀하하|구냐아|하이다냥~)냥`, "$1"),
			mustRule(`((?:웅냥)+)냥(?![웅냥])`, "$1"),
		},
	}
}

func dogDialect() dialect {
	rules := []rule{
		mustRule(`안녕(?![하히])`, "멍하"),
		mustRule(`하이`, "멍하"),
		mustRule(`([가-힣]+)나요`+endWord, "$1나멍"),
		mustRule(`([가-힣]+)가요`+endWord, "$1가왈"),
		mustRule(`(?<![가-힣])헐(?![가-힣])`, "헐멍멍"),
		mustRule(`([가-힣]+)드립니다`+endWord, "$1드립니다개"),
	}
	rules = append(rules, intensifiers("멍")...)
	rules = append(rules,
		mustRule(`(?<![가-힣])좋아`+endWord, "멍좋아"),
		mustRule(`(?<![가-힣])졸려`+endWord, "멍졸려"),
		mustRule(`(?<![가-힣])대박`+endWord, "개박"),
		mustRule(`([가-힣]+)싶어`+endWord, "$1싶개"),
		mustRule(`ㄱㄱ`, "고고개"),
		mustRule(`(?<![가-힣])하([,.])`, "끼잉$1"),
		mustRule(`([가-힣]+)지죠`+endWord, "$1지냐왈"),
		mustRule(`([가-힣]+)자나`+endWord, "$1자냐왈"),
		mustRule(`([가-힣]+)임`+endWord, "$1이다개"),
		mustRule(`([가-힣]+)잖아(?=[!?\s.,~]|$)`, "$1잖냐왈"),
		mustRule(`([가-힣]+)겁니다`+endWord, "$1거다개"),
		mustRule(`([가-힣]+)았다`+endWord, "$1았다멍"),
		mustRule(`([가-힣]+)었다`+endWord, "$1었다왈"),
		mustRule(`([가-힣]+)군`+endWord, "$1구와알"),
		mustRule(`귀엽다`+endWord, "궈엽다와알"),

		// answers
		mustRule(`^응`+endWord, "왈"),
		mustRule(`(\s)응`+endWord, "$1왈"),
		mustRule(`^(네|예)([!?.,])`, "왈$2"),
		mustRule(`^(네|예)(?=\s*$)`, "왈"),
		mustRule(`(\s)(네|예)([!?.,])`, "$1왈$3"),

		// interjections
		mustRule(`^(와|오|아)(?=\s|$|[.!?,:;])`, "왕왕"),
		mustRule(`(?<![가-힣])(앙|앗)(?![가-힣])`, "컹"),
		mustRule(`(?<![가-힣])(으악|아악)(?![가-힣])`, "으르렁"),

		// consonant shorthand, longest first
		mustRule(`ㅎㅇㅌ`, "멍이팅"),
		mustRule(`ㅎㅇ`, "멍하"),
		mustRule(`ㅇㅁ`, "어멍"),
		mustRule(`ㅁㅇ`, "모냐멍"),
		mustRule(`ㄱㅊ`, "괜찮컹"),
		mustRule(`(?<!ㄱ)ㅇㅇ`, "웅왈"),
		mustRule(`ㅇㄸ`, "어뗘컹"),
		mustRule(`(?<![가-힣])아하(?![가-힣])`, "아하컹"),
		mustRule(`(ㅋㅋ+)`, "$1멍하하"),
		mustRule(`(ㅎㅎ+)`, "$1헤헤~"),
		mustRule(`ㅜ+`, "끼잉.."),

		mustRule(`개웃`, "댕웃"),
		mustRule(`(\s)개(이쁘|귀엽|귀여)`, "$1댕$2"),
		mustRule(`(\s)존(잼|맛|예|귀|좋)`, "$1댕$2"),
		mustRule(`(맞아|마자|마좌|마쟈)(?![가-힣])`, "$1컹"),

		mustRule(`([가-힣])다(?!\w)`, "$1다개"),
		mustRule(`([가-힣])냐(?!\w)`, "$1냐왈"),
	)

	return dialect{
		rules:   rules,
		endings: endingRules("멍", "멍왈컹개"),
		cleanup: []rule{
			mustRule(`(끼잉|으르렁|어멍|모냐멍|왕왕|구와알|와알|멍이팅)멍`, "$1"),
			mustRule(`((?:멍하)+)멍(?![멍하])`, "$1"),
			mustRule(`((?:웅왈)+)멍(?![웅왈])`, "$1"),
		},
	}
}

func raccoonDialect() dialect {
	rules := []rule{
		mustRule(`안녕`, "구리구리안녕구리"),
		mustRule(`(미야옹즈|미야옹)`, "✨$1✨"),
		mustRule(`해보`, "해보(바보)🐈"),
		mustRule(`소피`, "소피🎀"),
		mustRule(`(해나|혜나|헤나|다혜신|곤뇽\.|곤뇽)`, "$1🦖"),
		mustRule(`하이`, "구리구리하이구리"),
		mustRule(`바이`, "구리구리바이구리"),
		mustRule(`빠이`, "구리구리빠이구리"),

		// people become raccoons
		mustRule(`사람들`, "너굴들"),
		mustRule(`사람이`, "너구리가"),
		mustRule(`사람을`, "너구리를"),
		mustRule(`(나는|난)\s*(\S+?)야`, "나는 너구리얍"),
		mustRule(`(나는|난)\s*(\S+?)다[가-힣]?`, "나는 너구리닷"),
		mustRule(`너구리`, "너구리🦝"),
		mustRule(`([가-힣])야(?=\s|$|[!?.,])`, "$1얍"),

		mustRule(`졸리다`, "졸리구리.."),
		mustRule(`잠온다`, "잠오는구리.."),
		mustRule(`배고파요?`, "배고프구리..."),
		mustRule(`배고프다`, "배고프구리..."),
		mustRule(`슬퍼`, "슬프구리..."),
		mustRule(`슬프다`, "슬프구리..."),
		mustRule(`심심해`, "심심하구리..."),
		mustRule(`심심하다`, "심심하구리..."),

		// other animals' endings turn into raccoon ones
		mustRule(`냐(멍|개|옹|왈|쮸|찍|몽|끼끼)`, "냐구리"),
		mustRule(`다(옹|멍|개|왈|냥|쮸|찍|몽|끼끼)`, "다굴"),
		mustRule(`다(?!\w)`, "다굴"),
		mustRule(`요(?!\w)`, "요구리"),

		// answers
		mustRule(`^응`+endWord, "웅"),
		mustRule(`(\s)응`+endWord, "$1웅"),
		mustRule(`^네([!?.,])`, "넹$1"),
		mustRule(`^네(?=\s*$)`, "넹"),
		mustRule(`(\s)네([!?.,])`, "$1넹$2"),
		mustRule(`(\s)네(?=\s*$)`, "$1넹"),
		mustRule(`^예([!?.,])`, "녱$1"),
		mustRule(`^예(?=\s*$)`, "녱"),
		mustRule(`(\s)예([!?.,])`, "$1녱$2"),
		mustRule(`(\s)예(?=\s*$)`, "$1녱"),

		// interjections
		mustRule(`^와(?=\s|$|[.!?,:;~])`, "후앙"),
		mustRule(`^오(?=\s|$|[.!?,:;~])`, "호오"),
		mustRule(`^아(?=\s|$|[.!?,:;~])`, "후아"),
		mustRule(`(?<![가-힣])앙(?![가-힣])`, "후앙"),
		mustRule(`(?<![가-힣])앗(?![가-힣])`, "후앗"),
		mustRule(`(?<![가-힣])으악(?![가-힣])`, "후악"),
		mustRule(`(?<![가-힣])아악(?![가-힣])`, "흐악"),

		// consonant shorthand, longest first
		mustRule(`(ㅎㅇㅌ|화이팅|파이팅)`, "너굴팅"),
		mustRule(`ㅎㅇ`, "구리구리하이구리!"),
		mustRule(`ㅇㅁ`, "어머너굴"),
		mustRule(`ㅁㅇ`, "모야너굴"),
		mustRule(`(ㄱㅊ|괜찮)`, "괜찮너굴"),
		mustRule(`ㅋㅋ+`, "$0굴하하"),
		mustRule(`ㅎㅎ+`, "$0헤헤헷~"),
		mustRule(`ㅜ+`, "굴굴.."),
		mustRule(`ㄱㄱ`, "고고너굴!"),
		mustRule(`ㅅㄱ`, "수고해라너굴~"),
		mustRule(`(?<!ㄱ)ㅇㅇ`, "웅구리"),
		mustRule(`(ㅇㄸ|어때|어떰|어뗘|어땡)`, "구리구리 어떻구리"),
		mustRule(`(?<![가-힣])아하(?![가-힣])`, "구리구리 아하구리"),
	}

	return dialect{
		rules: rules,
		endings: []rule{
			mustRule(`([가-힣])(?<!너굴)(\s*[.!?~\;]+)(?![가-힣])`, "$1너굴$2"),
			mustRule(`([가-힣])(?<!너굴)(\s*\^\^\s*$)`, "$1너굴$2"),
			mustRule(`([가-힣])(?<!너굴)(\s*:\)\s*$)`, "$1너굴$2"),
			mustRule(`([가-힣])(?<!찍)(\s*[ㄱ-ㅎㅏ-ㅣ]+)`, "$1너굴$2"),
			mustRule(`([가-힣])(?<!찍)(\s*\r?\n)`, "$1너굴$2"),
			mustRule(`([가-힣])(?<!찍)(\s*$)`, "$1너굴$2"),
		},
		cleanup: []rule{
			mustRule(`(소피|해보바보곤뇽|후앙|호오|구리|굴|미야옹|미야옹즈|굴하하)너굴`, "$1"),
		},
		englishSound: "meow",
	}
}
