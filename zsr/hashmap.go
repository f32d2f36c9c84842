package zsr

// hashNames maps the file-hash icon names reported by the seed service to
// the canonical tokens used in race info. Unmapped names pass through
// unchanged.
var hashNames = map[string]string{
	"Beans":            "HashBeans",
	"Big Magic":        "HashBigMagic",
	"Bombchu":          "HashBombchu",
	"Boomerang":        "HashBoomerang",
	"Boss Key":         "HashBossKey",
	"Bottled Fish":     "HashBottledFish",
	"Bottled Milk":     "HashBottledMilk",
	"Bow":              "HashBow",
	"Compass":          "HashCompass",
	"Cucco":            "HashCucco",
	"Deku Nut":         "HashDekuNut",
	"Deku Stick":       "HashDekuStick",
	"Fairy Ocarina":    "HashFairyOcarina",
	"Frog":             "HashFrog",
	"Gold Scale":       "HashGoldScale",
	"Heart Container":  "HashHeart",
	"Hover Boots":      "HashHoverBoots",
	"Kokiri Tunic":     "HashKokiriTunic",
	"Lens of Truth":    "HashLensOfTruth",
	"Longshot":         "HashLongshot",
	"Map":              "HashMap",
	"Mask of Truth":    "HashMaskOfTruth",
	"Master Sword":     "HashMasterSword",
	"Megaton Hammer":   "HashHammer",
	"Mirror Shield":    "HashMirrorShield",
	"Mushroom":         "HashMushroom",
	"Saw":              "HashSaw",
	"Silver Gauntlets": "HashSilvers",
	"Skull Token":      "HashSkullToken",
	"Slingshot":        "HashSlingshot",
	"SOLD OUT":         "HashSoldOut",
	"Stone of Agony":   "HashStoneOfAgony",
}

// noteNames maps seed password note names to their canonical tokens.
var noteNames = map[string]string{
	"A":       "NoteA",
	"C down":  "NoteCdown",
	"C up":    "NoteCup",
	"C left":  "NoteCleft",
	"C right": "NoteCright",
}
