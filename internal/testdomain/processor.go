package testdomain

import (
	"errors"
	"fmt"
)

// EntityProcessor handles entities and reports through its logger
type EntityProcessor interface {
	Logger() Logger
	ClassName() string
	Do(data string) string
	Collect(n int) []Report
}

// Implementation1 takes its logger from the container
type Implementation1 struct {
	logger Logger `inject:""`
}

func (p *Implementation1) Logger() Logger { return p.logger }

func (p *Implementation1) ClassName() string {
	p.logger.Log("ClassName")
	return "Implementation1"
}

func (p *Implementation1) Do(data string) string {
	p.logger.Log("Do")
	return fmt.Sprintf("%s: %s", p.ClassName(), data)
}

func (p *Implementation1) Collect(n int) []Report {
	p.logger.Log("Collect")
	return collect(p.ClassName(), n)
}

// Implementation1Child reuses Implementation1 under another class name
type Implementation1Child struct {
	Implementation1
}

func (p *Implementation1Child) ClassName() string {
	return "Implementation1Child"
}

func (p *Implementation1Child) Do(data string) string {
	return fmt.Sprintf("%s >> %s", p.ClassName(), p.Implementation1.Do(data))
}

func (p *Implementation1Child) Collect(n int) []Report {
	p.logger.Log("Collect")
	return collect(p.ClassName(), n)
}

// Implementation2 needs a constructorVariable parameter besides its logger
type Implementation2 struct {
	ConstructorVariable string `param:"constructorVariable"`
	logger              Logger `inject:""`
}

// Init rejects an empty constructorVariable
func (p *Implementation2) Init() error {
	if p.ConstructorVariable == "" {
		return errors.New("constructorVariable must not be empty")
	}
	return nil
}

func (p *Implementation2) Logger() Logger { return p.logger }

func (p *Implementation2) ClassName() string { return "Implementation2" }

func (p *Implementation2) Do(data string) string {
	return fmt.Sprintf("%s: %s", p.ClassName(), data)
}

func (p *Implementation2) Collect(n int) []Report {
	return collect(p.ClassName(), n)
}

func collect(name string, n int) []Report {
	reports := make([]Report, n)
	for i := range reports {
		reports[i] = Report{ID: i, Name: name}
	}
	return reports
}
