package config

// DefaultFeeds is used when the config file lists no feeds.
func DefaultFeeds() []FeedConfig {
	return []FeedConfig{
		{Name: "TechCabal", URL: "https://techcabal.com/feed/", Category: "Tech & Startups"},
		{Name: "Disrupt Africa", URL: "https://disrupt-africa.com/feed/", Category: "Startups & Funding"},
		{Name: "TechCrunch", URL: "https://techcrunch.com/category/startups/feed/", Category: "Global Tech"},
		{Name: "eLearning Industry", URL: "https://elearningindustry.com/feed", Category: "Education & Skills"},
	}
}

// DefaultKeywords is the relevance set: digital skills and education, startups and funding,
// AI and technology, African countries and regions, youth and careers.
func DefaultKeywords() []string {
	return []string{
		// digital skills / education / training
		"digital skills", "education", "edtech", "training", "learning", "bootcamp", "coding",
		"mentorship", "scholarship", "course", "upskill",
		// startups / funding / investment
		"startup", "funding", "investment", "investor", "venture", "seed round", "accelerator",
		"incubator", "fintech",
		// AI / technology
		"artificial intelligence", "machine learning", "technology", "software", "developer",
		"data science", "innovation",
		// African countries / regions
		"africa", "nigeria", "kenya", "ghana", "south africa", "egypt", "rwanda", "ethiopia",
		"uganda", "tanzania", "senegal", "morocco", "lagos", "nairobi",
		// youth / jobs / career
		"youth", "young people", "jobs", "employment", "career", "internship", "hiring", "talent",
	}
}
