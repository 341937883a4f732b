package coordinator

import (
	"github.com/omarlabs/omar/internal/conversation"
	"github.com/omarlabs/omar/internal/llm"
)

// systemPersona is the industrial troubleshooting instruction block sent with
// every prompt.
const systemPersona = `Eres OMAR, un asistente de IA industrial especializado en ayudar a operadores y mantenedores de planta.
Tu función es apoyar con diagnóstico de fallas, procedimientos operativos, interpretación de códigos de error y mantenimiento preventivo.
Proporciona respuestas técnicas precisas y concisas, prioriza la seguridad en todas las recomendaciones y responde en español de manera profesional.`

// initialGreeting is prepended to the first answer after the greeting TTL
// lapses, re-introducing the assistant to operators returning after a break.
const initialGreeting = `Hola, soy OMAR, tu compañero de trabajo inteligente.

He sido entrenado con la experiencia de operadores y mantenedores expertos de esta planta. Puedo ayudarte con:

🔧 Diagnóstico de fallas comunes
📚 Procedimientos operativos
⚡ Soluciones rápidas basadas en casos anteriores
🎯 Mantenimiento preventivo

¿En qué puedo ayudarte hoy?`

// buildPrompt assembles the outbound context: persona, the bounded history
// window in chronological order, and the new question.
func buildPrompt(history []conversation.Turn, question string) llm.Prompt {
	exchanges := make([]llm.Exchange, 0, len(history))
	for _, turn := range history {
		exchanges = append(exchanges, llm.Exchange{Question: turn.Question, Answer: turn.Answer})
	}
	return llm.Prompt{
		System:   systemPersona,
		History:  exchanges,
		Question: question,
	}
}
