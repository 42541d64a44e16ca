package scraper

import "strings"

// maxSkills caps the inferred skill list per listing.
const maxSkills = 8

// titleTech maps role-title substrings to canonical skill names. The order
// is fixed so the same title always yields the same skill list.
var titleTech = []struct {
	keyword string
	skill   string
}{
	{"react", "React"}, {"angular", "Angular"}, {"vue", "Vue"},
	{"python", "Python"}, {"java", "Java"}, {"javascript", "JavaScript"},
	{"typescript", "TypeScript"}, {"go", "Go"}, {"rust", "Rust"},
	{"c++", "C++"}, {"c#", "C#"}, {"swift", "Swift"}, {"kotlin", "Kotlin"},
	{"aws", "AWS"}, {"azure", "Azure"}, {"gcp", "GCP"},
	{"docker", "Docker"}, {"kubernetes", "Kubernetes"},
	{"node", "Node.js"}, {"sql", "SQL"}, {".net", ".NET"},
}

// SkillsFromTitle infers a skill list from a role title alone: explicitly
// named technologies first, then a baseline set for the first role family
// the title matches. Specific families are checked before generic ones.
// The result is deduplicated case-insensitively, order preserved, and
// capped at maxSkills.
func SkillsFromTitle(roleTitle string) []string {
	t := strings.ToLower(roleTitle)

	var skills []string
	for _, m := range titleTech {
		if strings.Contains(t, m.keyword) {
			skills = append(skills, m.skill)
		}
	}

	switch {
	case containsAny(t, "frontend", "front-end", "front end"):
		skills = append(skills, "JavaScript", "React", "HTML", "CSS", "TypeScript", "Frontend Development")
	case containsAny(t, "backend", "back-end", "back end"):
		skills = append(skills, "Python", "Java", "SQL", "API Development", "Backend Development", "REST APIs")
	case containsAny(t, "full stack", "fullstack", "full-stack"):
		skills = append(skills, "JavaScript", "Python", "SQL", "React", "Node.js", "Full Stack Development")
	case strings.Contains(t, "mobile"):
		skills = append(skills, "Mobile Development", "Swift", "Kotlin", "Java", "iOS", "Android")
	case containsAny(t, "data scien", "data analy"):
		skills = append(skills, "Python", "SQL", "Data Analysis", "Machine Learning", "Statistics", "Pandas")
	case strings.Contains(t, "data engineer") || (strings.Contains(t, "data") && strings.Contains(t, "engineer")):
		skills = append(skills, "Python", "SQL", "ETL", "Data Pipelines", "Spark", "Data Engineering")
	case containsAny(t, "machine learning", "ml engineer", " ai "):
		skills = append(skills, "Python", "Machine Learning", "TensorFlow", "PyTorch", "Deep Learning")
	case containsAny(t, "devops", "sre"):
		skills = append(skills, "AWS", "Docker", "Kubernetes", "CI/CD", "Linux", "DevOps")
	case strings.Contains(t, "cloud"):
		skills = append(skills, "AWS", "Azure", "Cloud Computing", "Docker", "Python")
	case containsAny(t, "security", "cybersecurity", "cyber"):
		skills = append(skills, "Cybersecurity", "Network Security", "Python", "Security Analysis")
	case containsAny(t, "qa", "test", "sdet", "quality"):
		skills = append(skills, "Testing", "Test Automation", "Selenium", "Python", "Java", "QA")
	case containsAny(t, "embedded", "firmware"):
		skills = append(skills, "C++", "C", "Embedded Systems", "Firmware", "Hardware")
	case strings.Contains(t, "ios"):
		skills = append(skills, "Swift", "iOS", "Xcode", "Mobile Development")
	case strings.Contains(t, "android"):
		skills = append(skills, "Kotlin", "Java", "Android", "Mobile Development")
	case strings.Contains(t, "automation"):
		skills = append(skills, "Python", "Automation", "Testing", "Scripting")
	case containsAny(t, "database", "dba"):
		skills = append(skills, "SQL", "Database Design", "MySQL", "PostgreSQL")
	case containsAny(t, "salesforce", "crm"):
		skills = append(skills, "Salesforce", "CRM", "Apex", "Lightning")
	case strings.Contains(t, "infrastructure"):
		skills = append(skills, "Python", "Infrastructure", "Cloud Computing", "DevOps")
	default:
		skills = append(skills, "Python", "Java", "Software Development", "Algorithms", "Data Structures")
	}

	return dedupeSkills(skills, maxSkills)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func dedupeSkills(skills []string, limit int) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, limit)
	for _, s := range skills {
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
