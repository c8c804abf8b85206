package fieldmap

// Candidate-path tables for the actor records we consume. The actors are
// not contractually stable: field names flip between snake_case and
// camelCase and nesting changes between versions, so every variant ever
// observed is listed here in priority order.

// ProfileFields maps canonical profile attributes to their candidates in
// the person-scrape actor output.
var ProfileFields = map[string]Spec{
	"linkedin_url":    {"linkedin_url", "linkedinUrl", "profileUrl", "url"},
	"public_id":       {"public_identifier", "publicIdentifier", "public_id"},
	"urn":             {"urn", "entityUrn", "linkedin_id", "id"},
	"first_name":      {"first_name", "firstName", "basic_info.first_name"},
	"last_name":       {"last_name", "lastName", "basic_info.last_name"},
	"full_name":       {"full_name", "fullName", "name", "basic_info.fullname"},
	"headline":        {"headline", "occupation", "basic_info.headline"},
	"about":           {"about", "summary", "basic_info.about"},
	"country":         {"address_country_only", "location.country", "geoCountryName"},
	"address":         {"address_with_country", "location.full", "geoLocationName", "address_without_country"},
	"connections":     {"connections", "connectionsCount", "connections_count"},
	"followers":       {"followers", "followersCount", "followers_count"},
	"mobile_number":   {"mobile_number", "mobileNumber", "phone"},
	"profile_pic":     {"profile_pic_high_quality", "profilePicHighQuality", "profile_pic", "profilePic", "pictureUrl"},
	"company_name":    {"company_name", "companyName", "experiences[0].company", "positions[].companyName"},
	"company_website": {"company_website", "companyWebsite", "experiences[0].company_website"},
	"job_title":       {"job_title", "jobTitle", "experiences[0].title", "positions[].title"},
	"job_location":    {"job_location", "jobLocation", "experiences[0].location"},
	"is_premium":      {"is_premium", "isPremium", "premium"},
	"is_verified":     {"is_verified", "isVerified", "verified"},
	// Complex attributes pass through as opaque structured values and are
	// stored verbatim; flattening them would lose the actor's sub-record
	// shape for no benefit.
	"experiences": {"experiences", "positions", "work_experience"},
	"skills":      {"skills", "skillsList"},
	"educations":  {"educations", "education", "schools"},
}

// PostFields maps canonical post attributes to their candidates in the
// company-posts actor output.
var PostFields = map[string]Spec{
	"source_url": {"post_url", "postUrl", "url", "link"},
	"text":       {"text", "content", "commentary", "post_text"},
	"posted_at":  {"posted_at.date", "postedAt.date", "posted_at", "postedAt", "date"},
	"author":     {"author.name", "authorName", "actor.name"},
	"likes":      {"stats.total_reactions", "totalReactionCount", "likes", "numLikes"},
	"comments":   {"stats.comments", "commentsCount", "numComments"},
}
