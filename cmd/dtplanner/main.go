// Command dtplanner produces digital transformation plans for a company
// profile by consulting LLM-generated expert personas.
package main

func main() {
	Execute()
}
