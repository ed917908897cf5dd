package services

import (
	"math"
	"sort"
	"time"

	"github.com/devnovate/blog/models"
)

const (
	// TrendingLimit is the number of posts returned by the trending listing.
	TrendingLimit = 10

	likeWeight    = 3.0
	commentWeight = 2.0
	viewWeight    = 0.1
	decayPerDay   = 0.1
	minDecay      = 0.1
)

// RankedPost is a post annotated with its trending score.
type RankedPost struct {
	*models.Post
	TrendingScore float64 `json:"trending_score"`
}

// TimeDecay weights a post by age. A post from the future gets a factor above 1.
func TimeDecay(createdAt, now time.Time) float64 {
	ageInDays := float64(now.Sub(createdAt)) / float64(24*time.Hour)
	return math.Max(minDecay, 1/(1+ageInDays*decayPerDay))
}

// TrendingScore is the decayed engagement of post at now.
func TrendingScore(post *models.Post, now time.Time) float64 {
	engagement := float64(len(post.Likes))*likeWeight +
		float64(len(post.Comments))*commentWeight +
		float64(post.Views)*viewWeight
	return engagement * TimeDecay(post.CreatedAt, now)
}

// RankTrending scores posts and returns the top limit by descending score.
// Equal scores keep their input order.
func RankTrending(posts []*models.Post, now time.Time, limit int) []RankedPost {
	ranked := make([]RankedPost, 0, len(posts))
	for _, p := range posts {
		ranked = append(ranked, RankedPost{Post: p, TrendingScore: TrendingScore(p, now)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TrendingScore > ranked[j].TrendingScore
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
