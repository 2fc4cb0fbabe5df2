package models

// SearchResult holds the users and posts matching a search query.
type SearchResult struct {
	Users []UserSummary `json:"users"`
	Posts []PostView    `json:"posts"`
	Page  int           `json:"page"`
}
