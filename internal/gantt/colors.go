package gantt

import "ganttservice/internal/model"

// DefaultColorID is used for unknown or empty color ids.
const DefaultColorID = "yellow"

var palette = map[string]model.Color{
	"yellow":      {Name: "Yellow", Background: "rgb(245, 247, 196)", Border: "rgb(223, 227, 45)"},
	"blue":        {Name: "Blue", Background: "rgb(219, 235, 255)", Border: "rgb(168, 207, 255)"},
	"green":       {Name: "Green", Background: "rgb(189, 244, 203)", Border: "rgb(74, 227, 113)"},
	"purple":      {Name: "Purple", Background: "rgb(223, 176, 255)", Border: "rgb(205, 133, 254)"},
	"red":         {Name: "Red", Background: "rgb(255, 187, 187)", Border: "rgb(255, 151, 151)"},
	"orange":      {Name: "Orange", Background: "rgb(255, 215, 179)", Border: "rgb(255, 172, 98)"},
	"grey":        {Name: "Grey", Background: "rgb(238, 238, 238)", Border: "rgb(204, 204, 204)"},
	"brown":       {Name: "Brown", Background: "#d7ccc8", Border: "#4e342e"},
	"deep_orange": {Name: "Deep Orange", Background: "#ffab91", Border: "#e64a19"},
	"dark_grey":   {Name: "Dark Grey", Background: "#cfd8dc", Border: "#455a64"},
	"pink":        {Name: "Pink", Background: "#f48fb1", Border: "#d81b60"},
	"teal":        {Name: "Teal", Background: "#80cbc4", Border: "#00695c"},
	"cyan":        {Name: "Cyan", Background: "#b2ebf2", Border: "#00bcd4"},
	"lime":        {Name: "Lime", Background: "#e6ee9c", Border: "#afb42b"},
	"light_green": {Name: "Light Green", Background: "#dcedc8", Border: "#689f38"},
	"amber":       {Name: "Amber", Background: "#ffe082", Border: "#ffa000"},
}

// ColorOf returns the palette entry for colorID, falling back to yellow.
func ColorOf(colorID string) model.Color {
	if c, ok := palette[colorID]; ok {
		return c
	}
	return palette[DefaultColorID]
}
