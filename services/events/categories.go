package events

import "spot/models"

var defaultCategories = []models.Category{
	{ID: "1", Name: "Music", Segment: "music"},
	{ID: "2", Name: "Sports", Segment: "sports"},
	{ID: "3", Name: "Arts", Segment: "arts"},
	{ID: "4", Name: "Film", Segment: "film"},
	{ID: "5", Name: "Family", Segment: "family"},
	{ID: "6", Name: "Comedy", Segment: "comedy"},
	{ID: "7", Name: "Festivals", Segment: "festivals"},
	{ID: "8", Name: "Conferences", Segment: "conferences"},
	{ID: "9", Name: "Expos", Segment: "expos"},
	{ID: "10", Name: "Fashion", Segment: "fashion"},
	{ID: "11", Name: "Technology", Segment: "technology"},
	{ID: "12", Name: "Health", Segment: "health"},
	{ID: "13", Name: "Education", Segment: "education"},
	{ID: "14", Name: "Business", Segment: "business"},
	{ID: "15", Name: "Spirituality", Segment: "spirituality"},
	{ID: "16", Name: "Food", Segment: "food"},
	{ID: "17", Name: "Gaming", Segment: "gaming"},
	{ID: "18", Name: "Travel", Segment: "travel"},
	{ID: "19", Name: "Literature", Segment: "literature"},
	{ID: "20", Name: "Nightlife", Segment: "nightlife"},
}

// DefaultCategories returns a copy of the built-in category catalogue.
func DefaultCategories() []models.Category {
	out := make([]models.Category, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}
