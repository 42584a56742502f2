package rag

// seedPassages is the starter knowledge base about the business and
// its products, used to bootstrap an empty index.
var seedPassages = []string{
	"A Álefe Lins AI Solutions é uma empresa inovadora focada no desenvolvimento de agentes de inteligência artificial para otimização de marketing digital e automação de processos. Nosso objetivo é transformar a maneira como as empresas interagem com seus clientes, com foco em personalização e eficiência.",
	"Nosso principal produto, o 'AI Marketing Hub', será um aplicativo revolucionário que integra as últimas tendências em IA para análise de dados de campanhas, personalização de conteúdo, segmentação de público e otimização de funis de venda. Ele está previsto para ser lançado no final de 2025 e promete ser um divisor de águas no setor.",
	"Oferecemos consultoria especializada em implementação de IA e tecnologias de ponta para pequenas e médias empresas. Ajudamos a identificar oportunidades de automação, melhorar a performance de campanhas e integrar soluções de IA personalizadas. Nossos agentes são projetados para serem escaláveis e adaptáveis às necessidades específicas de cada cliente.",
	"Para iniciar um negócio de agentes de IA bem-sucedido, é crucial realizar uma pesquisa de mercado aprofundada para identificar um nicho com demanda clara. Em seguida, construir um MVP (Produto Mínimo Viável) rapidamente, coletar feedback de usuários reais e iterar sobre o produto. O foco na experiência do usuário e na entrega de valor contínuo são passos iniciais fundamentais para o sucesso.",
}
