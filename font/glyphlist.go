package font

// glyphNameToUnicode maps the glyph names seen in Differences arrays of
// Latin-script documents to Unicode. Names outside the table fall back to
// the uniXXXX and uXXXX forms in GlyphRune.
var glyphNameToUnicode = map[string]rune{
	"A":                0x0041,
	"a":                0x0061,
	"Aacute":           0x00C1,
	"aacute":           0x00E1,
	"Abreve":           0x0102,
	"abreve":           0x0103,
	"Acircumflex":      0x00C2,
	"acircumflex":      0x00E2,
	"acute":            0x00B4,
	"Adieresis":        0x00C4,
	"adieresis":        0x00E4,
	"AE":               0x00C6,
	"ae":               0x00E6,
	"afii00208":        0x2015,
	"afii61352":        0x2116,
	"Agrave":           0x00C0,
	"agrave":           0x00E0,
	"Alpha":            0x0391,
	"alpha":            0x03B1,
	"ampersand":        0x0026,
	"Aogonek":          0x0104,
	"aogonek":          0x0105,
	"approxequal":      0x2248,
	"Aring":            0x00C5,
	"aring":            0x00E5,
	"arrowboth":        0x2194,
	"arrowdown":        0x2193,
	"arrowleft":        0x2190,
	"arrowright":       0x2192,
	"arrowup":          0x2191,
	"asciicircum":      0x005E,
	"asciitilde":       0x007E,
	"asterisk":         0x002A,
	"at":               0x0040,
	"Atilde":           0x00C3,
	"atilde":           0x00E3,
	"B":                0x0042,
	"b":                0x0062,
	"backslash":        0x005C,
	"bar":              0x007C,
	"Beta":             0x0392,
	"beta":             0x03B2,
	"braceleft":        0x007B,
	"braceright":       0x007D,
	"bracketleft":      0x005B,
	"bracketright":     0x005D,
	"breve":            0x02D8,
	"brokenbar":        0x00A6,
	"bullet":           0x2022,
	"C":                0x0043,
	"c":                0x0063,
	"Cacute":           0x0106,
	"cacute":           0x0107,
	"caron":            0x02C7,
	"Ccaron":           0x010C,
	"ccaron":           0x010D,
	"Ccedilla":         0x00C7,
	"ccedilla":         0x00E7,
	"cedilla":          0x00B8,
	"cent":             0x00A2,
	"checkmark":        0x2713,
	"circumflex":       0x02C6,
	"colon":            0x003A,
	"comma":            0x002C,
	"copyright":        0x00A9,
	"currency":         0x00A4,
	"D":                0x0044,
	"d":                0x0064,
	"dagger":           0x2020,
	"daggerdbl":        0x2021,
	"Dcaron":           0x010E,
	"dcaron":           0x010F,
	"Dcroat":           0x0110,
	"dcroat":           0x0111,
	"degree":           0x00B0,
	"Delta":            0x2206,
	"delta":            0x03B4,
	"dieresis":         0x00A8,
	"divide":           0x00F7,
	"dollar":           0x0024,
	"dotaccent":        0x02D9,
	"dotlessi":         0x0131,
	"E":                0x0045,
	"e":                0x0065,
	"Eacute":           0x00C9,
	"eacute":           0x00E9,
	"Ecaron":           0x011A,
	"ecaron":           0x011B,
	"Ecircumflex":      0x00CA,
	"ecircumflex":      0x00EA,
	"Edieresis":        0x00CB,
	"edieresis":        0x00EB,
	"Egrave":           0x00C8,
	"egrave":           0x00E8,
	"eight":            0x0038,
	"ellipsis":         0x2026,
	"emdash":           0x2014,
	"endash":           0x2013,
	"Eogonek":          0x0118,
	"eogonek":          0x0119,
	"epsilon":          0x03B5,
	"equal":            0x003D,
	"estimated":        0x212E,
	"Eth":              0x00D0,
	"eth":              0x00F0,
	"Euro":             0x20AC,
	"exclam":           0x0021,
	"exclamdown":       0x00A1,
	"F":                0x0046,
	"f":                0x0066,
	"ff":               0xFB00,
	"ffi":              0xFB03,
	"ffl":              0xFB04,
	"fi":               0xFB01,
	"figuredash":       0x2012,
	"five":             0x0035,
	"fl":               0xFB02,
	"florin":           0x0192,
	"four":             0x0034,
	"fraction":         0x2044,
	"G":                0x0047,
	"g":                0x0067,
	"Gamma":            0x0393,
	"gamma":            0x03B3,
	"Gbreve":           0x011E,
	"gbreve":           0x011F,
	"germandbls":       0x00DF,
	"grave":            0x0060,
	"greater":          0x003E,
	"greaterequal":     0x2265,
	"guillemotleft":    0x00AB,
	"guillemotright":   0x00BB,
	"guilsinglleft":    0x2039,
	"guilsinglright":   0x203A,
	"H":                0x0048,
	"h":                0x0068,
	"hungarumlaut":     0x02DD,
	"hyphen":           0x002D,
	"I":                0x0049,
	"i":                0x0069,
	"Iacute":           0x00CD,
	"iacute":           0x00ED,
	"Icircumflex":      0x00CE,
	"icircumflex":      0x00EE,
	"Idieresis":        0x00CF,
	"idieresis":        0x00EF,
	"Idotaccent":       0x0130,
	"Igrave":           0x00CC,
	"igrave":           0x00EC,
	"infinity":         0x221E,
	"integral":         0x222B,
	"J":                0x004A,
	"j":                0x006A,
	"K":                0x004B,
	"k":                0x006B,
	"L":                0x004C,
	"l":                0x006C,
	"Lacute":           0x0139,
	"lacute":           0x013A,
	"lambda":           0x03BB,
	"Lcaron":           0x013D,
	"lcaron":           0x013E,
	"less":             0x003C,
	"lessequal":        0x2264,
	"logicalnot":       0x00AC,
	"lozenge":          0x25CA,
	"Lslash":           0x0141,
	"lslash":           0x0142,
	"M":                0x004D,
	"m":                0x006D,
	"macron":           0x00AF,
	"middot":           0x00B7,
	"minus":            0x2212,
	"mu":               0x00B5,
	"multiply":         0x00D7,
	"N":                0x004E,
	"n":                0x006E,
	"Nacute":           0x0143,
	"nacute":           0x0144,
	"nbspace":          0x00A0,
	"Ncaron":           0x0147,
	"ncaron":           0x0148,
	"nine":             0x0039,
	"nonbreakingspace": 0x00A0,
	"notequal":         0x2260,
	"Ntilde":           0x00D1,
	"ntilde":           0x00F1,
	"numbersign":       0x0023,
	"numero":           0x2116,
	"O":                0x004F,
	"o":                0x006F,
	"Oacute":           0x00D3,
	"oacute":           0x00F3,
	"Ocircumflex":      0x00D4,
	"ocircumflex":      0x00F4,
	"Odieresis":        0x00D6,
	"odieresis":        0x00F6,
	"OE":               0x0152,
	"oe":               0x0153,
	"ogonek":           0x02DB,
	"Ograve":           0x00D2,
	"ograve":           0x00F2,
	"Ohm":              0x2126,
	"Ohungarumlaut":    0x0150,
	"ohungarumlaut":    0x0151,
	"Omega":            0x2126,
	"omega":            0x03C9,
	"one":              0x0031,
	"onedotenleader":   0x2024,
	"onehalf":          0x00BD,
	"onequarter":       0x00BC,
	"onesuperior":      0x00B9,
	"ordfeminine":      0x00AA,
	"ordmasculine":     0x00BA,
	"Oslash":           0x00D8,
	"oslash":           0x00F8,
	"Otilde":           0x00D5,
	"otilde":           0x00F5,
	"P":                0x0050,
	"p":                0x0070,
	"paragraph":        0x00B6,
	"parenleft":        0x0028,
	"parenright":       0x0029,
	"partialdiff":      0x2202,
	"percent":          0x0025,
	"period":           0x002E,
	"periodcentered":   0x00B7,
	"perthousand":      0x2030,
	"Pi":               0x03A0,
	"pi":               0x03C0,
	"plus":             0x002B,
	"plusminus":        0x00B1,
	"product":          0x220F,
	"Q":                0x0051,
	"q":                0x0071,
	"question":         0x003F,
	"questiondown":     0x00BF,
	"quotedbl":         0x0022,
	"quotedblbase":     0x201E,
	"quotedblleft":     0x201C,
	"quotedblright":    0x201D,
	"quoteleft":        0x2018,
	"quoteright":       0x2019,
	"quotesinglbase":   0x201A,
	"quotesingle":      0x0027,
	"R":                0x0052,
	"r":                0x0072,
	"Racute":           0x0154,
	"racute":           0x0155,
	"radical":          0x221A,
	"Rcaron":           0x0158,
	"rcaron":           0x0159,
	"registered":       0x00AE,
	"ring":             0x02DA,
	"S":                0x0053,
	"s":                0x0073,
	"Sacute":           0x015A,
	"sacute":           0x015B,
	"Scaron":           0x0160,
	"scaron":           0x0161,
	"Scedilla":         0x015E,
	"scedilla":         0x015F,
	"section":          0x00A7,
	"semicolon":        0x003B,
	"seven":            0x0037,
	"sfthyphen":        0x00AD,
	"Sigma":            0x03A3,
	"sigma":            0x03C3,
	"six":              0x0036,
	"slash":            0x002F,
	"softhyphen":       0x00AD,
	"space":            0x0020,
	"sterling":         0x00A3,
	"summation":        0x2211,
	"T":                0x0054,
	"t":                0x0074,
	"tau":              0x03C4,
	"Tcaron":           0x0164,
	"tcaron":           0x0165,
	"theta":            0x03B8,
	"Thorn":            0x00DE,
	"thorn":            0x00FE,
	"three":            0x0033,
	"threequarters":    0x00BE,
	"threesuperior":    0x00B3,
	"tilde":            0x02DC,
	"trademark":        0x2122,
	"two":              0x0032,
	"twodotenleader":   0x2025,
	"twosuperior":      0x00B2,
	"U":                0x0055,
	"u":                0x0075,
	"Uacute":           0x00DA,
	"uacute":           0x00FA,
	"Ucircumflex":      0x00DB,
	"ucircumflex":      0x00FB,
	"Udieresis":        0x00DC,
	"udieresis":        0x00FC,
	"Ugrave":           0x00D9,
	"ugrave":           0x00F9,
	"Uhungarumlaut":    0x0170,
	"uhungarumlaut":    0x0171,
	"underscore":       0x005F,
	"Uring":            0x016E,
	"uring":            0x016F,
	"V":                0x0056,
	"v":                0x0076,
	"W":                0x0057,
	"w":                0x0077,
	"X":                0x0058,
	"x":                0x0078,
	"Y":                0x0059,
	"y":                0x0079,
	"Yacute":           0x00DD,
	"yacute":           0x00FD,
	"Ydieresis":        0x0178,
	"ydieresis":        0x00FF,
	"yen":              0x00A5,
	"Z":                0x005A,
	"z":                0x007A,
	"Zacute":           0x0179,
	"zacute":           0x017A,
	"Zcaron":           0x017D,
	"zcaron":           0x017E,
	"Zdotaccent":       0x017B,
	"zdotaccent":       0x017C,
	"zero":             0x0030,
}
