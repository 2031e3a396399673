// Command concierge is a conversational assistant for startup funding questions.
package main

func main() {
	Execute()
}
