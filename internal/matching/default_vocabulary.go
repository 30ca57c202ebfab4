package matching

import "sync"

// defaultSkills is the built-in skill lexicon, grouped by area.
var defaultSkills = []string{
	// core / databases
	"python", "pandas", "numpy", "sql", "postgresql", "mysql", "sql server", "t-sql", "ms sql", "bigquery",
	// BI and visualization
	"power bi", "tableau", "looker", "google data studio", "data visualization", "excel", "gsheet",
	// machine learning
	"scikit-learn", "machine learning", "deep learning", "nlp", "tensorflow", "pytorch",
	"xgboost", "random forest", "time series", "ab testing", "a/b testing",
	// pipelines and warehousing
	"etl", "ssis", "ssas", "ssrs", "airflow", "data modeling", "data warehouse",
	// big data, cloud, tooling
	"spark", "hadoop", "aws", "azure", "google cloud", "git", "github", "docker", "marketing analytics",
}

// defaultKeywords are task and domain words that count toward keyword overlap.
var defaultKeywords = []string{
	"dashboard", "reporting", "pipeline", "modeling", "deployment", "ab testing",
	"segmentation", "forecast", "recommendation", "churn", "feature engineering",
	"kpi", "optimization", "automation", "stakeholder", "storytelling", "experiment",
	"etl", "sql", "python", "power bi", "looker", "tableau", "spark", "hadoop", "bigquery",
	"airflow", "docker", "git", "time series", "marketing analytics",
}

// defaultAliases lists spelling variants in the order they are applied.
var defaultAliases = []Alias{
	{From: "ms sql", To: "sql"},
	{From: "mssql", To: "sql"},
	{From: "sqlserver", To: "sql"},
	{From: "t sql", To: "t-sql"},
	{From: "google bigquery", To: "bigquery"},
	{From: "gcp", To: "google cloud"},
	{From: "a b testing", To: "ab testing"},
	{From: "a/b testing", To: "ab testing"},
}

// DefaultSkills returns a copy of the built-in skill lexicon.
func DefaultSkills() []string { return append([]string(nil), defaultSkills...) }

// DefaultKeywords returns a copy of the built-in keyword list.
func DefaultKeywords() []string { return append([]string(nil), defaultKeywords...) }

// DefaultAliases returns a copy of the built-in alias table.
func DefaultAliases() []Alias { return append([]Alias(nil), defaultAliases...) }

var (
	defaultVocabOnce sync.Once
	defaultVocab     *Vocabulary
)

// DefaultVocabulary returns the shared built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	defaultVocabOnce.Do(func() {
		v, err := NewVocabulary(defaultSkills, defaultKeywords, defaultAliases)
		if err != nil {
			panic("built-in vocabulary is invalid: " + err.Error())
		}
		defaultVocab = v
	})
	return defaultVocab
}
