package generation

// Canned replies for the mood emoji picker. These never reach the model.
var emojiReplies = map[string]string{
	"😊": "Good to hear you're feeling good! It's wonderful to see positive energy. Keep spreading that joy!",
	"😐": "It's okay to feel neutral sometimes. Every emotion is valid. How about we chat to explore what's on your mind?",
	"😟": "I can sense you might be feeling a bit worried. It's completely normal to feel this way. Would you like to talk about what's on your mind?",
	"😢": "It's alright to feel low sometimes. Your feelings are valid and you're not alone. Chat with us to feel better, maybe?",
	"😡": "I understand you're feeling frustrated or angry. These emotions are natural. Let's talk through what's bothering you.",
}

// EmojiFallback answers any emoji without a canned reply.
const EmojiFallback = "Thank you for sharing how you feel. We're here to listen and support you."

// EmojiReply returns the canned reply for emoji.
func EmojiReply(emoji string) string {
	if reply, ok := emojiReplies[emoji]; ok {
		return reply
	}
	return EmojiFallback
}
