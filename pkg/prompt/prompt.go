// Package prompt renders the instructions sent to the text-generation backend
// for post and comment transformations.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

var (
	ErrUnknownAnimal  = errors.New("prompt: unknown animal")
	ErrUnknownEmotion = errors.New("prompt: unknown emotion")
)

// Animal is the persona a text is rewritten in.
type Animal string

const (
	Cat Animal = "cat"
	Dog Animal = "dog"
)

// Emotion is the mood of a post.
type Emotion string

const (
	Normal  Emotion = "normal"
	Happy   Emotion = "happy"
	Curious Emotion = "curious"
	Sad     Emotion = "sad"
	Grumpy  Emotion = "grumpy"
	Angry   Emotion = "angry"
)

// Emotions lists every supported emotion in display order.
var Emotions = []Emotion{Normal, Happy, Curious, Sad, Grumpy, Angry}

// ParseAnimal validates a post_type value.
func ParseAnimal(s string) (Animal, error) {
	a := Animal(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := personas[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAnimal, s)
	}
	return a, nil
}

// ParseEmotion validates an emotion value.
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Emotions {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEmotion, s)
}

// Trait is the ending and vocabulary an animal uses in a given mood.
type Trait struct {
	Suffix          string
	Characteristics []string
}

type persona struct {
	postRole    string
	commentRole string
	styles      map[Emotion]string
	traits      map[Emotion]Trait
}

// TraitFor returns the ending and vocabulary for an animal in a mood.
func TraitFor(a Animal, e Emotion) (Trait, error) {
	p, ok := personas[a]
	if !ok {
		return Trait{}, fmt.Errorf("%w: %q", ErrUnknownAnimal, a)
	}
	t, ok := p.traits[e]
	if !ok {
		return Trait{}, fmt.Errorf("%w: %q", ErrUnknownEmotion, e)
	}
	return t, nil
}

type postData struct {
	Role    string
	Animal  Animal
	Emotion Emotion
	Style   string
	Trait   Trait
	Content string
}

type commentData struct {
	Role    string
	Content string
}

var (
	postTmpl = template.Must(template.New("post").Parse(`{{.Role}}

[현재 감정 상태]
{{.Emotion}}

[감정별 스타일 지침]
{{.Style}}

[어미와 어휘 예시]
어미: {{.Trait.Suffix}}
어휘: {{range $i, $w := .Trait.Characteristics}}{{if $i}}, {{end}}{{$w}}{{end}}

[사용자 입력 원문]
{{.Content}}

[작성 지침]
- 위 내용을 기반으로, "{{.Animal}}"의 말투와 문체로 글을 **일부 재구성**하라.
- 동물의 사고방식으로 세상을 바라보고 해석하는 모습을 담아라.
- 해당 동물의 습성, 행동 패턴을 자연스럽게 문장에 녹여내라.
- 동물이 실제로 할 수 있는 행동과 감정 표현을 넣어라.
- 원문의 단어와 내용은 유지한다.
`))

	commentTmpl = template.Must(template.New("comment").Parse(`{{.Role}}

[사용자 입력 원문 (댓글)]
{{.Content}}
`))
)

// Post renders the prompt for rewriting a post in the animal's voice and mood.
func Post(content string, a Animal, e Emotion) (string, error) {
	p, ok := personas[a]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAnimal, a)
	}
	style, ok := p.styles[e]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEmotion, e)
	}

	var sb strings.Builder
	err := postTmpl.Execute(&sb, postData{
		Role:    p.postRole,
		Animal:  a,
		Emotion: e,
		Style:   style,
		Trait:   p.traits[e],
		Content: content,
	})
	if err != nil {
		return "", fmt.Errorf("prompt: render post: %w", err)
	}
	return sb.String(), nil
}

// Comment renders the prompt for rewriting a comment in the animal's voice.
func Comment(content string, a Animal) (string, error) {
	p, ok := personas[a]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAnimal, a)
	}

	var sb strings.Builder
	if err := commentTmpl.Execute(&sb, commentData{Role: p.commentRole, Content: content}); err != nil {
		return "", fmt.Errorf("prompt: render comment: %w", err)
	}
	return sb.String(), nil
}
