package generate

// Author is a byline attached to generated articles.
type Author struct {
	Name  string
	Title string
}

// authors is the byline pool. Assignment is keyed by slug so the same article
// always shows the same author across regenerations and rebuilds.
var authors = []Author{
	{"Alex Mercer", "Senior Software Engineer"},
	{"Jamie Okonkwo", "Platform Engineer"},
	{"Priya Nair", "Site Reliability Engineer"},
	{"Daniel Kovacs", "Backend Engineer"},
	{"Sofia Reyes", "Cloud Infrastructure Engineer"},
	{"Marcus Webb", "DevOps Engineer"},
	{"Kenji Tanaka", "Full-Stack Developer"},
	{"Asha Mensah", "Software Architect"},
	{"Ryan Holloway", "Senior DevOps Engineer"},
	{"Lena Schreiber", "Infrastructure Engineer"},
	{"Chris Delacroix", "Staff Engineer"},
	{"Yemi Adeyemi", "Cloud Solutions Engineer"},
	{"Natasha Koval", "Senior Backend Developer"},
	{"Omar Farooq", "Platform Reliability Engineer"},
	{"Ingrid Holm", "Systems Engineer"},
	{"Ben Whitfield", "Senior Full-Stack Engineer"},
	{"Carmen Ortega", "DevOps & Cloud Specialist"},
	{"Takeshi Mori", "Software Engineer"},
	{"Amara Diallo", "API & Integration Engineer"},
	{"Ethan Calloway", "Principal Engineer"},
	{"Nina Johansson", "Site Reliability Engineer"},
	{"Lucas Ferreira", "Senior Platform Engineer"},
	{"Divya Krishnan", "Cloud & DevOps Engineer"},
	{"Patrick Brennan", "Backend & Infrastructure Lead"},
	{"Zara Osei", "Full-Stack & DevOps Engineer"},
}

// PickAuthor deterministically maps a slug to an author. The byte-sum keeps
// the mapping stable across processes, unlike a seeded hash.
func PickAuthor(slug string) Author {
	sum := 0
	for _, c := range []byte(slug) {
		sum += int(c)
	}
	return authors[sum%len(authors)]
}
