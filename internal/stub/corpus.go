package stub

import "github.com/podlens/podlens/internal/api"

// defaultChunks is a small transcript corpus used when the stub is run
// without custom data. Similarities are fixed per chunk; the search
// handler scales them by naive term overlap with the query.
func defaultChunks() []api.Source {
	return []api.Source{
		{
			ID:           1,
			EpisodeGuest: "Elena Verna",
			EpisodeTitle: "Growth loops over funnels",
			ChunkType:    "insight",
			Text:         "Pricing is a growth lever, not a finance exercise. Start with value metrics that scale with usage.",
			Speaker:      "Elena Verna",
			Keywords:     []string{"pricing", "growth", "value metric"},
			Similarity:   0.86,
		},
		{
			ID:           2,
			EpisodeGuest: "Elena Verna",
			EpisodeTitle: "Growth loops over funnels",
			ChunkType:    "framework",
			Text:         "Every acquisition loop needs an activation checkpoint within the first session, otherwise the loop leaks.",
			Speaker:      "Elena Verna",
			Keywords:     []string{"activation", "loops"},
			Similarity:   0.81,
		},
		{
			ID:           3,
			EpisodeGuest: "Brian Chesky",
			EpisodeTitle: "Founder mode and company culture",
			ChunkType:    "story",
			Text:         "We rebuilt the company around a single shared roadmap. Culture is what you celebrate and what you tolerate.",
			Speaker:      "Brian Chesky",
			Keywords:     []string{"culture", "roadmap"},
			Similarity:   0.84,
		},
		{
			ID:           4,
			EpisodeGuest: "Brian Chesky",
			EpisodeTitle: "Founder mode and company culture",
			ChunkType:    "insight",
			Text:         "Founders should be in the details. Delegation without context is abdication.",
			Speaker:      "Brian Chesky",
			Keywords:     []string{"founder mode", "culture"},
			Similarity:   0.79,
		},
		{
			ID:           5,
			EpisodeGuest: "April Dunford",
			EpisodeTitle: "Positioning that wins deals",
			ChunkType:    "framework",
			Text:         "Positioning starts from your best customers: list what they value, then work backwards to the market you should dominate.",
			Speaker:      "April Dunford",
			Keywords:     []string{"positioning", "pricing"},
			Similarity:   0.83,
		},
	}
}

func defaultGuides() []api.GuideDetail {
	return []api.GuideDetail{
		{
			Guide: api.Guide{
				ID:          1,
				Guest:       "Elena Verna",
				Title:       "Growth loops over funnels",
				TLDR:        "Replace funnel thinking with compounding loops and usage-based pricing.",
				Views:       412,
				ActionCount: 4,
				Frameworks:  []string{"Growth Loops", "Value Metric Pricing"},
			},
			ActionItems: []string{
				"Map your current acquisition loop end to end",
				"Define one activation checkpoint for the first session",
				"Pick a value metric that scales with customer usage",
				"Run a pricing interview with five active customers",
			},
			WhenApplies: []string{"PLG products", "usage-based pricing decisions"},
			ListenIf:    "You own growth or pricing and your funnel has plateaued.",
			SkipIf:      "You sell top-down enterprise deals only.",
		},
		{
			Guide: api.Guide{
				ID:          2,
				Guest:       "Brian Chesky",
				Title:       "Founder mode and company culture",
				TLDR:        "Centralize the roadmap, stay in the details, rebuild culture deliberately.",
				Views:       387,
				ActionCount: 3,
				Frameworks:  []string{"Single Roadmap", "Founder Mode"},
			},
			ActionItems: []string{
				"Consolidate team roadmaps into one shared document",
				"Schedule a monthly deep-dive into one product detail",
				"Write down what the company celebrates and tolerates",
			},
			WhenApplies: []string{"post-PMF scaling", "culture resets"},
			ListenIf:    "Your org has drifted into siloed planning.",
			SkipIf:      "You are pre-product and a team of two.",
		},
		{
			Guide: api.Guide{
				ID:          3,
				Guest:       "April Dunford",
				Title:       "Positioning that wins deals",
				TLDR:        "Derive positioning from your best customers, not your feature list.",
				Views:       251,
				ActionCount: 3,
				Frameworks:  []string{"Obviously Awesome"},
			},
			ActionItems: []string{
				"List your ten best-fit customers and what they praise",
				"Cluster the praise into differentiated value",
				"Rewrite your homepage headline from that value",
			},
			WhenApplies: []string{"repositioning", "new market entry"},
			ListenIf:    "Sales keeps losing to 'we went with the cheaper one'.",
			SkipIf:      "Your win rate is already above 40%.",
		},
	}
}

func defaultTrending() []api.TrendingItem {
	return []api.TrendingItem{
		{Query: "how to price a new product", Count: 34},
		{Query: "what did Elena Verna say about activation", Count: 21},
		{Query: "founder mode", Count: 18},
		{Query: "positioning for plg", Count: 11},
	}
}
