package prompt

type NamedOption struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

func AdTypes() []NamedOption {
	order := []string{
		"image-ad",
		"banner-ad",
		"product-image",
		"social-square",
		"social-story",
	}

	out := make([]NamedOption, 0, len(order))
	for _, key := range order {
		if ad, ok := adTypes[key]; ok {
			out = append(out, NamedOption{
				Key:         key,
				Name:        ad.Title,
				Description: ad.Description,
				AspectRatio: ad.AspectRatio,
			})
		}
	}
	return out
}

func Industries() []NamedOption {
	return namedOptions(industries, []string{
		"digital-agencies",
		"social-media",
		"seo-sem",
		"content-marketing",
	})
}

func ToneStyles() []NamedOption {
	return namedOptions(toneStyles, []string{
		"minimalist",
		"vibrant",
		"professional",
		"playful",
	})
}

func namedOptions(names map[string]string, order []string) []NamedOption {
	out := make([]NamedOption, 0, len(order))
	for _, key := range order {
		if name, ok := names[key]; ok {
			out = append(out, NamedOption{Key: key, Name: name})
		}
	}
	return out
}
