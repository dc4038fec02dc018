// Package catalog 标准学习路径：主题、前置关系和题库，随二进制一起发布。
package catalog

import (
	_ "embed"
	"dsa_hub_backend/internal/progress"
	"dsa_hub_backend/internal/quizflow"
	"errors"
	"fmt"
	"math/rand/v2"

	"gopkg.in/yaml.v3"
)

var (
	//go:embed topics.yaml
	topicsYAML []byte
	//go:embed questions.yaml
	questionsYAML []byte
)

var (
	ErrTopicNotFound  = errors.New("topic not found")
	ErrNoQuestionBank = errors.New("no question bank for topic")
)

type Topic struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Prerequisites  []string `yaml:"prerequisites" json:"prerequisites"`
	TotalQuestions int      `yaml:"totalQuestions" json:"totalQuestions"`
}

type Catalog struct {
	topics []Topic
	byID   map[string]int
	banks  map[string][]quizflow.Question
}

// Load 解析内置数据
func Load() (*Catalog, error) {
	return Parse(topicsYAML, questionsYAML)
}

// Parse 解析并校验主题与题库，前置关系必须是 DAG
func Parse(topicsData, questionsData []byte) (*Catalog, error) {
	var tf struct {
		Topics []Topic `yaml:"topics"`
	}
	if err := yaml.Unmarshal(topicsData, &tf); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	nodes := make([]progress.Topic, len(tf.Topics))
	for i, t := range tf.Topics {
		nodes[i] = progress.Topic{ID: t.ID, Prerequisites: t.Prerequisites}
	}
	if err := progress.ValidateGraph(nodes); err != nil {
		return nil, err
	}

	c := &Catalog{
		topics: tf.Topics,
		byID:   make(map[string]int, len(tf.Topics)),
		banks:  make(map[string][]quizflow.Question),
	}
	for i, t := range tf.Topics {
		if t.TotalQuestions <= 0 {
			return nil, fmt.Errorf("topic %q: totalQuestions must be positive", t.ID)
		}
		c.byID[t.ID] = i
	}

	var qf struct {
		Banks map[string][]quizflow.Question `yaml:"banks"`
	}
	if err := yaml.Unmarshal(questionsData, &qf); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	for topicID, bank := range qf.Banks {
		if _, ok := c.byID[topicID]; !ok {
			return nil, fmt.Errorf("question bank for unknown topic %q", topicID)
		}
		for i := range bank {
			// 各题库内的 id 会重复，加上主题前缀
			bank[i].ID = topicID + "-" + bank[i].ID
			bank[i].Topic = topicID
			if err := bank[i].Validate(); err != nil {
				return nil, fmt.Errorf("topic %q question %d: %w", topicID, i, err)
			}
		}
		c.banks[topicID] = bank
	}

	return c, nil
}

// Topics 按学习路径顺序返回
func (c *Catalog) Topics() []Topic {
	out := make([]Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

func (c *Catalog) Topic(id string) (Topic, error) {
	i, ok := c.byID[id]
	if !ok {
		return Topic{}, fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	return c.topics[i], nil
}

func (c *Catalog) HasBank(topicID string) bool {
	return len(c.banks[topicID]) > 0
}

// Draw 打乱题库后取 n 道题，题库不足 n 道时全部返回
func (c *Catalog) Draw(topicID string, n int, rng *rand.Rand) ([]quizflow.Question, error) {
	bank := c.banks[topicID]
	if len(bank) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoQuestionBank, topicID)
	}
	qs := make([]quizflow.Question, len(bank))
	copy(qs, bank)
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	if n > 0 && n < len(qs) {
		qs = qs[:n]
	}
	return qs, nil
}
