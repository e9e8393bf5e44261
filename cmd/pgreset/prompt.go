package main

import (
	survey "gopkg.in/AlecAivazis/survey.v1"
	"gopkg.in/AlecAivazis/survey.v1/terminal"

	"github.com/mgutz/pgreset"
	"github.com/mgutz/pgreset/provision"
)

// askFunc matches survey.AskOne.
type askFunc func(p survey.Prompt, response interface{}, v survey.Validator) error

// confirmer prints the plan and asks the operator before anything is dropped.
type confirmer struct {
	console *console
	ask     askFunc
}

func newConfirmer(c *console) *confirmer {
	return &confirmer{console: c, ask: func(p survey.Prompt, response interface{}, v survey.Validator) error {
		return survey.AskOne(p, response, v)
	}}
}

// Confirm implements provision.ConfirmFunc. Ctrl-C at the prompt counts as a
// refusal.
func (c *confirmer) Confirm(plan provision.Plan) (bool, error) {
	c.console.plan(plan)

	ok := false
	prompt := &survey.Confirm{Message: "Continue?", Default: false}
	if err := c.ask(prompt, &ok, nil); err != nil {
		if err == terminal.InterruptErr {
			return false, pgreset.NewError(pgreset.ErrCancelled, plan.Mode.String(), plan.Database, err)
		}
		return false, err
	}
	return ok, nil
}
